// Command bloomctl is the operator and player CLI of a Skill Bloom node.
package main

func main() {
	Execute()
}
