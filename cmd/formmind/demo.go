package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/formmind/formmind/internal/cli"
)

// Sample forms mirroring a small batch of wage statements plus one
// PII-heavy letter, written as plain text so the demo needs no PDF tooling.
var demoForms = map[string]string{
	"employee_w2_2023.txt": `W-2 Wage and Tax Statement 2023

Employee: John Smith
Employer: ABC Corporation

Box 1 Wages: $70,000.00
Box 2 Federal income tax withheld: $11,200.00
`,
	"employee_w2_2024.txt": `W-2 Wage and Tax Statement 2024

Employee: John Smith
Employer: ABC Corporation

Box 1 Wages: $85,000.00
Box 2 Federal income tax withheld: $12,450.75
`,
	"employee_w2_2025.txt": `W-2 Wage and Tax Statement 2025

Employee: John Smith
Employer: ABC Corporation

Box 1 Wages: $95,000.00
Box 2 Federal income tax withheld: $13,600.00
`,
	"confidential_letter.txt": `Confidential HR Letter

Employee: Jane Doe
Phone: 9876543210
Email: jane.doe@example.com
Address: New York City, USA
`,
}

var demoQuestions = []string{
	"What were the wages in 2024?",
	"Who is the employer?",
	"What was the federal income tax withheld in 2023?",
}

// runDemo writes the sample forms to a temp directory, processes them against
// a running server, and asks a few questions over the indexed batch.
func runDemo() {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	dir, err := os.MkdirTemp("", "formmind-demo-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Demo setup failed: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	client := cli.NewClient(*serverURL)

	fmt.Println("=== Processing sample forms ===")
	for name, content := range demoForms {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Demo setup failed: %v\n", err)
			os.Exit(1)
		}
		result, err := client.Process(path, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Process %s failed: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("\n• %s (%d entities masked, %d documents indexed)\n",
			name, result.Stats.EntityCount, result.Stats.DocCount)
		if name == "confidential_letter.txt" {
			fmt.Printf("  Masked text:\n%s\n", result.Text)
		}
	}

	fmt.Println("\n=== Question answering ===")
	for _, question := range demoQuestions {
		resp, err := client.Ask(question, 3)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nQ: %s\nA: %s\n", question, resp.Answer)
	}
	fmt.Println("\n=== Demo finished ===")
}
