// Package discovery finds hosts on the directly connected IPv4 networks that
// expose a reachable ssh service.
//
// An Enumerator produces the candidate addresses, the Engine probes them over
// a bounded pool and a Namer assigns each qualifying host a name. Results are
// always returned sorted by address, whatever order the probes finish in.
package discovery
