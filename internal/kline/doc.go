/*
Kline turns a per-symbol stream of snapshots into OHLCV bars on the
period grid.

# Module
  - aggregator: rolling buffer, boundary test and bar history of one symbol
  - set: aggregators of one producer keyed by symbol

# Source
  - normalized snapshots from feed

# Produce
  - bars to subscribers, in subscription order

# Sharded
  - by symbol, one aggregator each, owned by a single producer goroutine
*/
package kline
