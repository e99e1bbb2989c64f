package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/tutorly/core/calendar"
	"github.com/trezcool/tutorly/core/lesson"
	"github.com/trezcool/tutorly/core/student"
)

var (
	errHelp = errors.New("help provided")

	stdout io.Writer = os.Stdout // mockable
)

// reminderRunner sends the reminders due since the previous run.
type reminderRunner interface {
	RunOnce(ctx context.Context, now time.Time) (int, error)
}

type commandLine struct {
	db        *sqlx.DB
	students  *student.Service
	lessons   *lesson.Service
	calendar  *calendar.Exporter
	reminders reminderRunner
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(stdout, "Usage:")
	fmt.Fprintln(stdout, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(stdout, "  importstudents -file FILE - create or update the students listed in a YAML file")
	fmt.Fprintln(stdout, "  export -student NAME [-out FILE] - write a student's lessons as an iCalendar feed")
	fmt.Fprintln(stdout, "  remind - send the lesson reminders due now")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("importstudents", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "YAML file holding a list of students.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportStudent := exportCmd.String("student", "", "The student's name; close spellings are accepted.")
	exportOut := exportCmd.String("out", "", "Output file. Defaults to stdout.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(ctx, *importFile)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportStudent == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(ctx, *exportStudent, *exportOut)
	case "remind":
		n, err := cli.reminders.RunOnce(ctx, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d reminder(s) sent\n", n)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) importStudents(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var list []student.NewStudent
	if err = yaml.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for i := range list {
		list[i].Clean()
	}

	created, updated, err := cli.students.Import(ctx, list)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d student(s) created, %d updated\n", created, updated)
	return nil
}

func (cli *commandLine) export(ctx context.Context, name, out string) error {
	stu, err := cli.students.FindByName(ctx, name)
	if err != nil {
		return err
	}

	lessons, err := cli.lessons.Query(ctx, &lesson.QueryFilter{StudentID: stu.ID}, nil)
	if err != nil {
		return err
	}

	w := stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	return cli.calendar.Encode(w, stu.DisplayName(), lessons)
}
