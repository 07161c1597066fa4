// Command docgen regenerates docs/api.adoc from the @Title/@Route/
// @Description/@Response annotations on the handlers in internal/api. The
// node's /docs pages render the result with libasciidoc at request time.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

type Endpoint struct {
	Title       string
	Route       string
	Description string
	Response    string
}

func main() {
	apiDir := "internal/api"
	files, err := os.ReadDir(apiDir)
	if err != nil {
		panic(err)
	}

	var endpoints []Endpoint

	// Regex to match comments
	reTitle := regexp.MustCompile(`// @Title: (.*)`)
	reRoute := regexp.MustCompile(`// @Route: (.*)`)
	reDesc := regexp.MustCompile(`// @Description: (.*)`)
	reResp := regexp.MustCompile(`// @Response: (.*)`)

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".go") || strings.HasSuffix(file.Name(), "_test.go") {
			continue
		}

		f, err := os.Open(filepath.Join(apiDir, file.Name()))
		if err != nil {
			continue
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		var current Endpoint

		for scanner.Scan() {
			line := scanner.Text()

			if match := reTitle.FindStringSubmatch(line); len(match) > 1 {
				current.Title = strings.TrimSpace(match[1])
			}
			if match := reRoute.FindStringSubmatch(line); len(match) > 1 {
				current.Route = strings.TrimSpace(match[1])
			}
			if match := reDesc.FindStringSubmatch(line); len(match) > 1 {
				current.Description = strings.TrimSpace(match[1])
			}
			if match := reResp.FindStringSubmatch(line); len(match) > 1 {
				current.Response = strings.TrimSpace(match[1])
				// End of block, append and reset
				if current.Title != "" && current.Route != "" {
					endpoints = append(endpoints, current)
					current = Endpoint{}
				}
			}
		}
	}

	// Stable ordering: GETs and POSTs interleave in source order per file,
	// so sort by route for a predictable document.
	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].Route < endpoints[j].Route
	})

	generateAdoc(endpoints)
}

func generateAdoc(endpoints []Endpoint) {
	var b strings.Builder

	b.WriteString("= tlm API Reference\n")
	b.WriteString(":toc:\n\n")
	b.WriteString("Auto-generated from handler annotations. Do not edit by hand;\n")
	b.WriteString("run `go run cmd/docgen/main.go` after changing internal/api.\n\n")

	for _, ep := range endpoints {
		b.WriteString(fmt.Sprintf("== %s\n\n", ep.Title))
		b.WriteString(fmt.Sprintf("`%s`\n\n", ep.Route))
		if ep.Description != "" {
			b.WriteString(ep.Description + "\n\n")
		}
		if ep.Response != "" {
			b.WriteString("Example response:\n\n")
			b.WriteString("[source,json]\n----\n")
			b.WriteString(ep.Response + "\n")
			b.WriteString("----\n\n")
		}
	}

	if err := os.MkdirAll("docs", 0755); err != nil {
		panic(err)
	}
	if err := os.WriteFile(filepath.Join("docs", "api.adoc"), []byte(b.String()), 0644); err != nil {
		panic(err)
	}
	fmt.Println("Generated docs/api.adoc")
}
