// Package sshconfig maintains a region of an OpenSSH client configuration
// file owned by find-sshable.
//
// The file is treated as a sequence of segments: free text that is passed
// through byte for byte, and at most one managed region delimited by
//
//	# BEGIN find-sshable
//	...
//	# END find-sshable
//
// A merge replaces the managed region wholesale and writes the result
// back atomically. No general ssh_config grammar is implemented.
package sshconfig
