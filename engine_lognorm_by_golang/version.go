package engine_lognorm_by_golang

// Version of the engine. Output shape follows liblognorm 2.0.6.
const Version = "2.0.6"
