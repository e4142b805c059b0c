// Package clientip resolves the originating client address behind reverse
// proxies. Failed login attempts are logged with it.
package clientip
