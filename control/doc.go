// Package control
// Author: momentics <momentics@gmail.com>
//
// Lightweight observability hooks for sansio-ws: a counter/metric
// registry and a debug probe reflector. Connections publish into these
// when the caller attaches them; the engine itself never logs.
package control
