package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// editForm drives the modal create/edit affordance over the edit buffer. A
// failed commit prints the error and keeps the form open with its state
// intact; cancel discards it.
func (c *Console) editForm(ctx context.Context) {
	buf := c.editor.Buffer()
	if buf == nil {
		return
	}

	buf.Name = c.promptString("name", buf.Name)
	buf.Age = c.promptInt("age", buf.Age)
	buf.Gender = c.promptString("gender (male/female/other)", buf.Gender)
	buf.Major = c.promptString("major", buf.Major)
	buf.ClassName = c.promptString("class", buf.ClassName)

	for c.editor.Open() {
		c.printRows()
		fmt.Fprint(c.out, "grades (addrow | delrow <n> | set <n> <subject> <score> | save | cancel): ")
		line, err := c.in.ReadString('\n')
		if err != nil {
			c.editor.Cancel()
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "addrow":
			c.editor.AddGradeRow()
		case "delrow":
			if len(fields) == 2 {
				if index, err := strconv.Atoi(fields[1]); err == nil {
					c.editor.RemoveGradeRow(index)
				}
			}
		case "set":
			c.setRow(fields[1:])
		case "save":
			if err := c.editor.Commit(ctx); err != nil {
				fmt.Fprintf(c.out, "save failed: %v\n", err)
				continue
			}
			fmt.Fprintln(c.out, "saved")
		case "cancel":
			c.editor.Cancel()
		}
	}
}

func (c *Console) printRows() {
	buf := c.editor.Buffer()
	if buf == nil {
		return
	}
	for i, row := range buf.Rows {
		fmt.Fprintf(c.out, "  [%d] %s = %.1f\n", i, row.Subject, row.Score)
	}
}

func (c *Console) setRow(args []string) {
	buf := c.editor.Buffer()
	if buf == nil || len(args) != 3 {
		fmt.Fprintln(c.out, "usage: set <n> <subject> <score>")
		return
	}
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 0 || index >= len(buf.Rows) {
		fmt.Fprintln(c.out, "no such row")
		return
	}
	score, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		fmt.Fprintln(c.out, "score must be a number")
		return
	}
	buf.Rows[index].Subject = args[1]
	buf.Rows[index].Score = score
}

// promptString reads one line, keeping the current value on empty input.
func (c *Console) promptString(label, current string) string {
	fmt.Fprintf(c.out, "%s [%s]: ", label, current)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return current
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return current
	}
	return value
}

func (c *Console) promptInt(label string, current int) int {
	value := c.promptString(label, strconv.Itoa(current))
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return current
	}
	return parsed
}
