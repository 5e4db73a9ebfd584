// Command example copies its first argument into a fixed size buffer.
package main

import "os"

func strcpy(dst []byte, src string) int {
	return copy(dst, src)
}

func greet(name string) {
	buf := make([]byte, 8)
	strcpy(buf, name)
}

func run(argc int, argv []string) {
	if argc > 1 {
		greet(argv[1])
	}
	greet("world")
}

func main() {
	run(len(os.Args), os.Args)
}
