package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	"github.com/noah-isme/records-console/internal/service"
	"github.com/noah-isme/records-console/pkg/config"
	"github.com/noah-isme/records-console/pkg/metrics"
)

// Console is the interactive front end. It holds no domain state of its own:
// every transition goes through the services.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	session  *service.SessionService
	students *service.StudentDirectoryService
	editor   *service.EditBufferService
	chart    *service.ChartService
	users    *service.UserDirectoryService
	export   *service.ExportService
	metrics  *metrics.Recorder
	cfg      *config.Config
	logger   *zap.Logger

	readPassword func(prompt string) (string, error)
}

// Deps bundles the console's collaborators.
type Deps struct {
	Session  *service.SessionService
	Students *service.StudentDirectoryService
	Editor   *service.EditBufferService
	Chart    *service.ChartService
	Users    *service.UserDirectoryService
	Export   *service.ExportService
	Metrics  *metrics.Recorder
	Config   *config.Config
	Logger   *zap.Logger
}

// New constructs the console over the given reader/writer.
func New(in *bufio.Reader, out io.Writer, deps Deps) *Console {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Console{
		in:       in,
		out:      out,
		session:  deps.Session,
		students: deps.Students,
		editor:   deps.Editor,
		chart:    deps.Chart,
		users:    deps.Users,
		export:   deps.Export,
		metrics:  deps.Metrics,
		cfg:      deps.Config,
		logger:   logger,
	}
	c.readPassword = func(prompt string) (string, error) {
		return readSecret(c.in, c.out, prompt)
	}
	return c
}

// Confirm builds the yes/no prompt used for destructive operations.
func Confirm(in *bufio.Reader, out io.Writer) service.Confirmer {
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := in.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

// Run re-enters through the session check, then alternates between the login
// form and the command loop until EOF or quit.
func (c *Console) Run(ctx context.Context) error {
	if err := c.session.CheckSession(ctx); err != nil {
		fmt.Fprintf(c.out, "session check failed: %v\n", err)
	}
	for {
		if !c.session.Session().LoggedIn {
			if done, err := c.loginForm(ctx); done || err != nil {
				return err
			}
			continue
		}
		if done, err := c.command(ctx); done || err != nil {
			return err
		}
	}
}

// loginForm drives the login/registration entry. Returns done=true on EOF or
// explicit quit.
func (c *Console) loginForm(ctx context.Context) (bool, error) {
	mode := "login"
	if c.session.RegisterMode() {
		mode = "register"
	}
	fmt.Fprintf(c.out, "[%s] username (or 'switch', 'quit'): ", mode)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return true, nil
	}
	username := strings.TrimSpace(line)
	switch username {
	case "quit", "exit":
		return true, nil
	case "switch":
		c.session.SetRegisterMode(!c.session.RegisterMode())
		return false, nil
	case "":
		return false, nil
	}

	password, err := c.readPassword("password: ")
	if err != nil {
		return true, nil
	}
	creds := models.Credentials{Username: username, Password: password}

	if c.session.RegisterMode() {
		if err := c.session.Register(ctx, &creds); err != nil {
			fmt.Fprintf(c.out, "registration failed: %v\n", err)
			return false, nil
		}
		fmt.Fprintln(c.out, "registered, please log in")
		return false, nil
	}

	if err := c.session.Login(ctx, &creds); err != nil {
		fmt.Fprintf(c.out, "login failed: %v\n", err)
		return false, nil
	}
	sess := c.session.Session()
	fmt.Fprintf(c.out, "welcome, %s (%s)\n", sess.Username, sess.Role)
	return false, nil
}

func (c *Console) command(ctx context.Context) (bool, error) {
	fmt.Fprint(c.out, "> ")
	line, err := c.in.ReadString('\n')
	if err != nil {
		return true, nil
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		c.printHelp()
	case "list":
		c.printStudents(c.students.Records())
	case "search":
		c.printStudents(c.students.Filter(strings.Join(args, " ")))
	case "reload":
		if err := c.students.Load(ctx); err != nil {
			fmt.Fprintf(c.out, "reload failed: %v\n", err)
		}
	case "select":
		c.selectStudent(args)
	case "show":
		c.showSelection()
	case "add":
		c.editor.OpenForCreate()
		c.editForm(ctx)
	case "edit":
		if selected := c.students.Selection(); selected != nil {
			c.editor.OpenForEdit(*selected)
			c.editForm(ctx)
		} else {
			fmt.Fprintln(c.out, "select a student first")
		}
	case "del":
		c.deleteSelection(ctx)
	case "users":
		c.printUsers()
	case "deluser":
		c.deleteUser(ctx, args)
	case "chart":
		c.chartCommand(ctx, args)
	case "export":
		c.exportRoster(args)
	case "stats":
		c.printStats()
	case "logout":
		c.session.Logout(ctx)
		fmt.Fprintln(c.out, "logged out")
	case "quit", "exit":
		return true, nil
	default:
		fmt.Fprintf(c.out, "unknown command %q, try 'help'\n", cmd)
	}
	return false, nil
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `commands:
  list                 show all students
  search <name>        filter students by name (case-sensitive)
  reload               refetch the student list
  select <id>          select a student
  show                 show the selected student
  add | edit | del     manage students (teacher only)
  users | deluser <id> manage accounts (teacher only)
  chart student        chart for the selected student
  chart subject <s>    chart for one subject across students
  chart refresh        refetch the current chart
  export [csv|pdf]     export the roster
  stats                backend request statistics
  logout | quit`)
}

func (c *Console) printStudents(records []models.StudentRecord) {
	if len(records) == 0 {
		fmt.Fprintln(c.out, "no students")
		return
	}
	for _, record := range records {
		fmt.Fprintf(c.out, "%4d  %-20s %3d  %-8s %-12s %s\n",
			record.ID, record.Name, record.Age, record.Gender, record.Major, record.ClassName)
	}
}

func (c *Console) selectStudent(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: select <id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || !c.students.SelectByID(id) {
		fmt.Fprintln(c.out, "no such student")
		return
	}
	c.showSelection()
}

func (c *Console) showSelection() {
	selected := c.students.Selection()
	if selected == nil {
		fmt.Fprintln(c.out, "nothing selected")
		return
	}
	fmt.Fprintf(c.out, "name: %s\nage: %d\ngender: %s\nmajor: %s\nclass: %s\n",
		selected.Name, selected.Age, selected.Gender, selected.Major, selected.ClassName)
	for subject, score := range selected.Grades {
		fmt.Fprintf(c.out, "  %s: %.1f\n", subject, score)
	}
}

func (c *Console) deleteSelection(ctx context.Context) {
	selected := c.students.Selection()
	if selected == nil {
		fmt.Fprintln(c.out, "select a student first")
		return
	}
	if err := c.students.Delete(ctx, *selected); err != nil {
		fmt.Fprintf(c.out, "delete failed: %v\n", err)
	}
}

func (c *Console) printUsers() {
	accounts := c.users.Accounts()
	if len(accounts) == 0 {
		fmt.Fprintln(c.out, "no accounts")
		return
	}
	for _, account := range accounts {
		fmt.Fprintf(c.out, "%4d  %-20s %s\n", account.ID, account.Username, account.Role)
	}
}

func (c *Console) deleteUser(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: deluser <id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintln(c.out, "usage: deluser <id>")
		return
	}
	for _, account := range c.users.Accounts() {
		if account.ID == id {
			if err := c.users.Delete(ctx, account); err != nil {
				fmt.Fprintf(c.out, "delete failed: %v\n", err)
			}
			return
		}
	}
	fmt.Fprintln(c.out, "no such account")
}

func (c *Console) chartCommand(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "usage: chart student | chart subject <name> | chart refresh")
		return
	}
	switch args[0] {
	case "student":
		c.chart.SetMode(models.ChartByStudent)
	case "subject":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "usage: chart subject <name>")
			return
		}
		c.chart.SetMode(models.ChartBySubject)
		c.chart.SetSubject(strings.Join(args[1:], " "))
	case "refresh":
	default:
		fmt.Fprintln(c.out, "usage: chart student | chart subject <name> | chart refresh")
		return
	}

	if err := c.chart.Refresh(ctx); err != nil {
		fmt.Fprintf(c.out, "chart fetch failed: %v\n", err)
		return
	}
	image := c.chart.Image()
	if image == nil {
		fmt.Fprintln(c.out, "no chart: select a student or name a subject")
		return
	}
	name := fmt.Sprintf("chart_%d.png", time.Now().Unix())
	path := filepath.Join(c.cfg.Chart.Dir, name)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		fmt.Fprintf(c.out, "write chart: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "chart written to %s\n", path)
}

func (c *Console) exportRoster(args []string) {
	format := c.cfg.Export.Format
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	data, name, err := c.export.Render(format)
	if err != nil {
		fmt.Fprintf(c.out, "export failed: %v\n", err)
		return
	}
	path := filepath.Join(c.cfg.Export.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(c.out, "write export: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "roster written to %s\n", path)
}

func (c *Console) printStats() {
	snap := c.metrics.Snapshot()
	fmt.Fprintf(c.out, "requests: %d  errors: %d  avg latency: %s\n",
		snap.Requests, snap.Errors, snap.AvgLatency)
}
