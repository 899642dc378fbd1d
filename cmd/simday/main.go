// Command simday runs the baseline and simulator against the trip log from the
// command line and prints JSON.
package main

func main() {
	Execute()
}
