// modforge compiles XML content schemas into typed Go code.
package main

func main() {
	Execute()
}
