// SPDX-License-Identifier: Apache 2.0

package main

import "github.com/go-edhoc/edhoc-go/cmd"

func main() {
	cmd.Execute()
}
