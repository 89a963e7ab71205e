package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strings"

	config "github.com/brown-csci1270/bloomdb/pkg/config"
	logger "github.com/brown-csci1270/bloomdb/pkg/logger"

	uuid "github.com/google/uuid"
)

// REPL struct.
type REPL struct {
	commands map[string]func(string, *REPLConfig) error
	help     map[string]string
}

// REPL Config struct.
type REPLConfig struct {
	writer   io.Writer
	clientId uuid.UUID
}

// Get writer.
func (replConfig *REPLConfig) GetWriter() io.Writer {
	return replConfig.writer
}

// Get address.
func (replConfig *REPLConfig) GetAddr() uuid.UUID {
	return replConfig.clientId
}

// Construct an empty REPL.
func NewRepl() *REPL {
	r := REPL{make(map[string]func(string, *REPLConfig) error), make(map[string]string)}
	return &r
}

// Combines a slice of REPLs.
func CombineRepls(repls []*REPL) (*REPL, error) {
	newRepl := NewRepl()
	for _, repl := range repls {
		for cmd := range repl.commands {
			if _, exist := newRepl.commands[cmd]; exist {
				return nil, errors.New("overlapping triggers")
			}
			newRepl.commands[cmd] = repl.commands[cmd]
			newRepl.help[cmd] = repl.help[cmd]
		}
	}
	return newRepl, nil
}

// Get commands.
func (r *REPL) GetCommands() map[string]func(string, *REPLConfig) error {
	return r.commands
}

// Get help.
func (r *REPL) GetHelp() map[string]string {
	return r.help
}

// Add a command, along with its help string, to the set of commands.
// Triggers are case-insensitive; meta commands (leading '.') are reserved.
func (r *REPL) AddCommand(trigger string, action func(string, *REPLConfig) error, help string) error {
	if strings.HasPrefix(trigger, ".") {
		return errors.New("cannot add meta commands")
	}
	trigger = strings.ToLower(trigger)
	r.commands[trigger] = action
	r.help[trigger] = help
	return nil
}

// Return all REPL usage information as a string, sorted by trigger.
func (r *REPL) HelpString() string {
	triggers := make([]string, 0, len(r.help))
	for cmd := range r.help {
		triggers = append(triggers, cmd)
	}
	sort.Strings(triggers)
	var sb strings.Builder
	for _, cmd := range triggers {
		sb.WriteString(cmd + ": " + r.help[cmd] + "\n")
	}
	return sb.String()
}

// Execute a single line against the command table, writing any reply or
// error to the writer in replConfig.
func (r *REPL) Execute(line string, replConfig *REPLConfig) {
	writer := replConfig.writer
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	trigger := cleanInput(fields[0])
	if trigger == ".help" {
		io.WriteString(writer, r.HelpString())
		return
	}
	command, exists := r.commands[trigger]
	if !exists {
		io.WriteString(writer, "command not found\n")
		return
	}
	if err := command(line, replConfig); err != nil {
		io.WriteString(writer, fmt.Sprintf("(error) %v\n", err))
	}
}

// Run the REPL over c, or stdin/stdout if c is nil, until EOF.
func (r *REPL) Run(c net.Conn, clientId uuid.UUID, prompt string) {
	// Get reader and writer; stdin and stdout if no conn.
	var reader io.Reader
	var writer io.Writer
	if c == nil {
		reader = os.Stdin
		writer = os.Stdout
	} else {
		reader = c
		writer = c
	}
	r.RunIO(reader, writer, clientId, prompt)
}

// RunIO runs the REPL loop over an arbitrary reader and writer.
func (r *REPL) RunIO(reader io.Reader, writer io.Writer, clientId uuid.UUID, prompt string) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), config.MaxLineSize)
	replConfig := &REPLConfig{writer: writer, clientId: clientId}
	io.WriteString(writer, prompt)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "EOF" {
			break
		}
		r.Execute(line, replConfig)
		io.WriteString(writer, prompt)
	}
	if err := scanner.Err(); err != nil {
		logger.Sugar.Warnf("client %s: input closed: %v", clientId, err)
		io.WriteString(writer, fmt.Sprintf("(error) %v\n", err))
	}
	// Print an additional line if we encountered an EOF character.
	io.WriteString(writer, "\n")
}

// cleanInput preprocesses input to the db repl.
func cleanInput(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
