/*
Period generates the bar boundary grid of a trading session.

# Module
  - session: regular hours, recess breaks and time zone
  - scheduler: ordered boundary timestamps for one session date

# Source
  - session and interval from ops config

# Produce
  - boundary timestamps consumed by kline aggregators

# Sharded
  - none
*/
package period
