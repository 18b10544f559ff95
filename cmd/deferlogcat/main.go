// Command deferlogcat renders and inspects deferlog capture files written
// by the recordio package.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/carlcook/deferlog/recordio"
)

func main() {
	app := &cli.Command{
		Name:  "deferlogcat",
		Usage: "Render and inspect deferlog capture files",
		Commands: []*cli.Command{
			catCommand(),
			statsCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func catCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "Render every record in a capture file to stdout",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			reader, err := openCapture(cmd)
			if err != nil {
				return err
			}
			defer reader.Close()

			out := bufio.NewWriter(os.Stdout)
			defer out.Flush()

			buf := make([]byte, 0, 256)
			for {
				buf, err = reader.Render(buf[:0])
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				buf = append(buf, '\n')
				if _, err := out.Write(buf); err != nil {
					return err
				}
			}
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Print record and statement counts for a capture file",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			reader, err := openCapture(cmd)
			if err != nil {
				return err
			}
			defer reader.Close()

			records := 0
			statements := make(map[string]int)
			payloadBytes := 0
			for {
				stmt, payload, err := reader.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				records++
				statements[stmt.Format()]++
				payloadBytes += len(payload)
			}

			fmt.Printf("records:      %d\n", records)
			fmt.Printf("statements:   %d\n", len(statements))
			fmt.Printf("payload size: %d bytes\n", payloadBytes)
			for format, n := range statements {
				fmt.Printf("  %6d  %s\n", n, format)
			}
			return nil
		},
	}
}

func openCapture(cmd *cli.Command) (*recordio.Reader, error) {
	path := cmd.Args().First()
	if path == "" {
		return nil, errors.New("capture file path required")
	}
	return recordio.OpenFile(path)
}
