/*
Engine runs sources and strategies for one trading day.

# Module
  - engine: state machine, producer lifecycle and shutdown policies
  - dispatch: single consumer loop routing events to strategies

# Source
  - events published by one feed pipeline per source

# Produce
  - strategy callbacks, synchronously on the dispatcher goroutine

# Sharded
  - none, one dispatcher per engine
*/
package engine
