// SPDX-License-Identifier: MPL-2.0

// rcbuild builds resource calculator sites incrementally.
package main

import cmd "rcbuild/cmd/rcbuild"

func main() {
	cmd.Execute()
}
