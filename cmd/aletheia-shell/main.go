package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/0xRadioAc7iv/go-aletheia/internal/archive"
	"github.com/0xRadioAc7iv/go-aletheia/internal/utils"
)

const helpString = `
Available Commands:

INFO
  Show the game name, creation time and size of the archive.

LS
  List the files in the archive.

EXTRACT <path> <destination>
  Write one file to destination. Quote paths containing spaces.

HELP
  Show this help message.

EXIT
  Close the archive and quit.
`

type shell struct {
	path   string
	reader *archive.Reader
	out    io.Writer
}

func (s *shell) handleCommand(cmd string, args []string) {
	switch cmd {
	case "info":
		s.handleCommandInfo()
	case "ls":
		s.handleCommandLs()
	case "extract":
		s.handleCommandExtract(args)
	case "help":
		fmt.Fprintln(s.out, strings.TrimSpace(helpString))
	default:
		fmt.Fprintln(s.out, "Invalid Command")
	}
}

func (s *shell) handleCommandInfo() {
	h := s.reader.Header()

	var size string
	if info, err := os.Stat(s.path); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}

	fmt.Fprintf(s.out, "game:    %s\n", h.Subject)
	fmt.Fprintf(s.out, "created: %s (%s)\n", s.reader.CreatedAt().Format("2006-01-02 15:04:05"), humanize.Time(s.reader.CreatedAt()))
	fmt.Fprintf(s.out, "files:   %d\n", h.EntryCount)
	fmt.Fprintf(s.out, "size:    %s\n", size)
}

func (s *shell) handleCommandLs() {
	entries := s.reader.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "nil")
		return
	}

	for _, e := range entries {
		fmt.Fprintf(s.out, "%-8s %-5s %s  %s\n", humanize.Bytes(e.DataSize), e.Compression, e.Modified.Format("2006-01-02 15:04"), e.LogicalPath)
	}
}

func (s *shell) handleCommandExtract(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "usage: extract <path> <destination>")
		return
	}

	if err := s.reader.Extract(args[0], args[1]); err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	fmt.Fprintln(s.out, "ok")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s <archive>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)
	reader, err := archive.Open(path)
	if err != nil {
		log.Fatalf("%s: %v", archive.Classify(err), err)
	}
	defer reader.Close()

	s := &shell{path: path, reader: reader, out: os.Stdout}

	fmt.Printf("Opened %v (%s)\n", path, reader.Subject())
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")

	input := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")

		line, err := input.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				fmt.Println("input error:", err)
			}
			return
		}

		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		cmd, args, err := utils.SplitStringIntoCommandAndArguments(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}

		if cmd == "exit" {
			return
		}

		s.handleCommand(cmd, args)
	}
}
