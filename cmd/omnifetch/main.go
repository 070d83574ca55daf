// Command omnifetch is a small curl-like front end for the omnifetch
// request/cache layer: it issues JSON API requests with the library's retry
// and caching behavior and can print cache statistics afterwards.
package main

func main() {
	Execute()
}
