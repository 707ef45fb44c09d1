// SPDX-License-Identifier: MPL-2.0

package main

import cmd "vaultpack/cmd/vaultpack"

func main() {
	cmd.Execute()
}
