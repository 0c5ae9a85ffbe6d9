/*
Feed is the producer side of the bus: it turns source callbacks into
canonical events.

# Module
  - pipeline: normalizer, per-symbol aggregators and publisher of one source

# Source
  - raw ticks, order books and bars from a source goroutine

# Produce
  - snapshot, bar, order book and end-of-stream events into the bus queue
  - normalized snapshots into optional sinks (tape, archive)

# Sharded
  - by source, one pipeline each
*/
package feed
