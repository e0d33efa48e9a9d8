// The main package for the aliscraper executable.
package main

import (
	"github.com/JakeFAU/aliexpress-search-crawler/cmd"
)

func main() {
	cmd.Execute()
}
