package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/loamdb/loam/errors"
)

// ReaderOptions configures delimited-text parsing for every input file
type ReaderOptions struct {
	Delimiter       rune   // field delimiter, default ','
	ArrayDelimiter  rune   // delimiter within array values such as labels, default ';'
	Quote           rune   // quote character, default '"'
	Encoding        string // IANA charset name, default utf-8
	MultilineFields bool   // allow quoted fields to span lines
}

func (o ReaderOptions) withDefaults() ReaderOptions {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.ArrayDelimiter == 0 {
		o.ArrayDelimiter = ';'
	}
	if o.Quote == 0 {
		o.Quote = '"'
	}
	if o.Encoding == "" {
		o.Encoding = "utf-8"
	}
	return o
}

// resolveEncoding looks the charset up in the IANA index
func resolveEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.NewConfigurationError("unsupported input encoding %q", name)
	}
	return enc, nil
}

type columnRole int

const (
	colProperty columnRole = iota
	colID
	colLabel
	colType
	colStartID
	colEndID
	colIgnore
)

type column struct {
	name string
	role columnRole
}

// parseHeader maps the first line of a file-set onto column roles.
// Recognized tags: :ID, :LABEL, :TYPE, :START_ID, :END_ID, :IGNORE.
// A tag the reader does not recognize is a property type annotation and the
// column is treated as a plain property.
func parseHeader(fields []string) []column {
	cols := make([]column, len(fields))
	for i, f := range fields {
		name, tag := f, ""
		if idx := strings.IndexByte(f, ':'); idx >= 0 {
			name, tag = f[:idx], f[idx+1:]
		}
		name = strings.TrimSpace(name)

		role := colProperty
		switch strings.ToUpper(strings.TrimSpace(tag)) {
		case "ID":
			role = colID
		case "LABEL":
			role = colLabel
		case "TYPE":
			role = colType
		case "START_ID":
			role = colStartID
		case "END_ID":
			role = colEndID
		case "IGNORE":
			role = colIgnore
		}
		cols[i] = column{name: name, role: role}
	}
	return cols
}

// fileSetStream reads one file-set as a single logical record stream.
// The header comes from the first file; the remaining files continue the
// same column layout. Single-pass, never restarted.
type fileSetStream struct {
	kind   Kind
	files  []string
	opts   ReaderOptions
	enc    encoding.Encoding
	header []column

	idx     int
	file    *os.File
	lines   *bufio.Scanner
	curFile string
	line    int
}

// OpenStream opens a raw, undecorated stream over the given file-set
func OpenStream(kind Kind, files []string, opts ReaderOptions) (Stream, error) {
	opts = opts.withDefaults()
	enc, err := resolveEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	s := &fileSetStream{kind: kind, files: files, opts: opts, enc: enc}
	if err := s.advance(); err != nil {
		return nil, err
	}

	headerFields, err := s.readRow()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewBadInputError("%s is empty, expected a header line", files[0])
		}
		return nil, err
	}
	s.header = parseHeader(headerFields)
	return s, nil
}

// advance opens the next file in the set
func (s *fileSetStream) advance() error {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	if s.idx >= len(s.files) {
		return io.EOF
	}

	f, err := os.Open(s.files[s.idx])
	if err != nil {
		return errors.Wrapf(err, "failed to open input file %s", s.files[s.idx])
	}
	s.file = f
	s.curFile = s.files[s.idx]
	s.idx++
	s.line = 0

	scanner := bufio.NewScanner(transform.NewReader(f, s.enc.NewDecoder()))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	s.lines = scanner
	return nil
}

// Next implements Stream. Recoverable malformations come back as
// *BadEntryError so the drain loop can hand them to the collector; anything
// else is fatal to the stream.
func (s *fileSetStream) Next() (*Record, error) {
	for {
		fields, err := s.readRow()
		if err != nil {
			return nil, err
		}
		if len(fields) == 1 && fields[0] == "" {
			continue // blank line
		}

		if len(fields) > len(s.header) {
			return nil, &BadEntryError{Entry: BadEntry{
				Kind:    BadEntryExtraColumn,
				Source:  s.pos(),
				Message: fmt.Sprintf("row has %d values but the header declares %d columns", len(fields), len(s.header)),
			}}
		}
		return s.toRecord(fields), nil
	}
}

// readRow reads one logical row, following quoted fields across physical
// lines when multiline fields are enabled
func (s *fileSetStream) readRow() ([]string, error) {
	raw, err := s.nextLine()
	if err != nil {
		return nil, err
	}
	startLine := s.line

	for {
		fields, complete := splitFields(raw, s.opts.Delimiter, s.opts.Quote)
		if complete {
			return fields, nil
		}
		if !s.opts.MultilineFields {
			return nil, errors.Wrapf(errors.ErrMultilineField,
				"quoted field starting at %s:%d spans multiple lines", s.curFile, startLine)
		}
		next, err := s.nextLine()
		if err == io.EOF {
			return nil, errors.Wrap(errors.ErrBadInput,
				fmt.Sprintf("unterminated quoted field starting at %s:%d", s.curFile, startLine))
		}
		if err != nil {
			return nil, err
		}
		raw = raw + "\n" + next
	}
}

// nextLine yields the next physical line, moving to the next file in the set
// on EOF
func (s *fileSetStream) nextLine() (string, error) {
	for {
		if s.lines == nil {
			return "", io.EOF
		}
		if s.lines.Scan() {
			s.line++
			return s.lines.Text(), nil
		}
		if err := s.lines.Err(); err != nil {
			return "", errors.Wrapf(err, "failed reading %s", s.curFile)
		}
		if err := s.advance(); err != nil {
			if err == io.EOF {
				s.lines = nil
			}
			return "", err
		}
	}
}

func (s *fileSetStream) pos() string {
	return fmt.Sprintf("%s:%d", s.curFile, s.line)
}

// toRecord maps row values onto a Record via the header's column roles.
// Missing trailing values are treated as empty; empty values carry no property.
func (s *fileSetStream) toRecord(fields []string) *Record {
	rec := &Record{Kind: s.kind, Source: s.pos()}
	for i, col := range s.header {
		var value string
		if i < len(fields) {
			value = fields[i]
		}
		if value == "" {
			continue
		}
		switch col.role {
		case colID:
			rec.ID = value
			if col.name != "" {
				rec.setProp(col.name, value)
			}
		case colLabel:
			for _, l := range strings.Split(value, string(s.opts.ArrayDelimiter)) {
				if l = strings.TrimSpace(l); l != "" && !hasLabel(rec.Labels, l) {
					rec.Labels = append(rec.Labels, l)
				}
			}
		case colType:
			rec.Type = value
		case colStartID:
			rec.StartID = value
		case colEndID:
			rec.EndID = value
		case colIgnore:
		default:
			rec.setProp(col.name, value)
		}
	}
	return rec
}

func (r *Record) setProp(name, value string) {
	if r.Props == nil {
		r.Props = map[string]string{}
	}
	r.Props[name] = value
}

// Close implements Stream
func (s *fileSetStream) Close() error {
	s.lines = nil
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// splitFields splits one physical line into fields. complete is false when
// the line ends inside a quoted field.
func splitFields(line string, delim, quote rune) (fields []string, complete bool) {
	var field strings.Builder
	inQuotes := false
	runes := []rune(line)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuotes && r == quote:
			if i+1 < len(runes) && runes[i+1] == quote {
				field.WriteRune(quote) // doubled quote is a literal
				i++
			} else {
				inQuotes = false
			}
		case !inQuotes && r == quote && field.Len() == 0:
			inQuotes = true
		case !inQuotes && r == delim:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	if inQuotes {
		return nil, false
	}
	return append(fields, field.String()), true
}
