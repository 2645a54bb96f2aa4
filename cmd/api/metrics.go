package main

import "expvar"

// paymentMetrics is served under "payments" at debug/vars.
var paymentMetrics = expvar.NewMap("payments")
