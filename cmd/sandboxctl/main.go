// Command sandboxctl renders component modules offline: it runs an
// execution host and a presentation host in-process, connected by a pipe,
// and prints or paints the resulting tree.
//
// Usage:
//
//	sandboxctl render App.jsx --png app.png --tap 20,60
//	sandboxctl batch ./examples --pattern '**/*.jsx' --out ./shots
package main

func main() {
	Execute()
}
