// Command restpf checks resource definitions, renders documents and serves
// resources over HTTP.
package main

func main() {
	Execute()
}
