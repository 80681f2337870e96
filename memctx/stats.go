package memctx

import (
	"fmt"
	"io"
	"strings"
)

// Counters accumulates memory totals across contexts. Stats implementations
// add their contribution into the caller's instance.
type Counters struct {
	NBlocks    int64
	FreeChunks int64
	TotalSpace int64
	FreeSpace  int64
}

// StatsEmitter consumes the human-readable summary line a context produces
// for Stats.
type StatsEmitter func(ctx Context, line string)

// PrintStats walks the context tree rooted at ctx and writes one summary
// line per context, indented by depth, followed by a grand total.
func PrintStats(ctx Context, w io.Writer) error {
	var totals Counters
	if err := printStats(ctx, w, 0, &totals); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Grand total: %d bytes in %d blocks; %d free (%d chunks); %d used\n",
		totals.TotalSpace, totals.NBlocks, totals.FreeSpace, totals.FreeChunks,
		totals.TotalSpace-totals.FreeSpace)
	return err
}

func printStats(ctx Context, w io.Writer, depth int, totals *Counters) error {
	var emitErr error
	ctx.Stats(func(c Context, line string) {
		_, emitErr = fmt.Fprintf(w, "%s%s: %s\n", strings.Repeat("  ", depth), c.Name(), line)
	}, totals)
	if emitErr != nil {
		return emitErr
	}
	for _, c := range ctx.base().children {
		if err := printStats(c.owner, w, depth+1, totals); err != nil {
			return err
		}
	}
	return nil
}
