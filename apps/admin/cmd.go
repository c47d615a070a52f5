package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp        = errors.New("help provided")
	errAborted     = errors.New("aborted")
	errNoSQL       = errors.New("migrate requires the postgres database engine")
	errNoMongo     = errors.New("ensureindexes requires the mongodb database engine")
	errNeedConfirm = errors.New("not a terminal: pass -yes to confirm")
)

type commandLine struct {
	stdSvc            student.Service
	migrateFunc       func(command string, args ...string) error // nil unless postgres
	ensureIndexesFunc func(ctx context.Context) ([]string, error) // nil unless mongodb
	defaultExpiryDays int
	in                io.Reader
	out               io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]            - run goose migrations (postgres)")
	fmt.Fprintln(cli.out, "  ensureindexes                     - create the collection indexes (mongodb)")
	fmt.Fprintln(cli.out, "  notifyexpiring [-days N]          - email students whose subscription expires within N days")
	fmt.Fprintln(cli.out, "  remindpayments [-date YYYY-MM-DD] - email students whose payment is due on date or the day after")
	fmt.Fprintln(cli.out, "  delete -id ID [-yes]              - delete a student")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	notifyCmd := flag.NewFlagSet("notifyexpiring", flag.ContinueOnError)
	notifyDays := notifyCmd.Int("days", cli.defaultExpiryDays, "Days before the subscription expiry.")

	remindCmd := flag.NewFlagSet("remindpayments", flag.ContinueOnError)
	remindDate := remindCmd.String("date", "", "The reminder date (YYYY-MM-DD). Defaults to today.")

	deleteCmd := flag.NewFlagSet("delete", flag.ContinueOnError)
	deleteID := deleteCmd.String("id", "", "The student's id.")
	deleteYes := deleteCmd.Bool("yes", false, "Do not ask for confirmation.")

	for _, fs := range []*flag.FlagSet{notifyCmd, remindCmd, deleteCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "ensureindexes":
		return cli.ensureIndexes(ctx)

	case "notifyexpiring":
		if err := notifyCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.notifyExpiring(ctx, *notifyDays)

	case "remindpayments":
		if err := remindCmd.Parse(args[2:]); err != nil {
			return err
		}
		day := core.Today()
		if *remindDate != "" {
			d, err := core.ParseDate(*remindDate)
			if err != nil {
				return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", *remindDate)
			}
			day = d.Time
		}
		return cli.remindPayments(ctx, day)

	case "delete":
		if err := deleteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deleteID == "" {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.deleteStudent(ctx, *deleteID, *deleteYes)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) ensureIndexes(ctx context.Context) error {
	if cli.ensureIndexesFunc == nil {
		return errNoMongo
	}
	names, err := cli.ensureIndexesFunc(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "indexes: %s\n", strings.Join(names, ", "))
	return nil
}

func (cli *commandLine) notifyExpiring(ctx context.Context, days int) error {
	n, err := cli.stdSvc.NotifyExpiring(ctx, days)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d student(s) notified\n", n)
	return nil
}

func (cli *commandLine) remindPayments(ctx context.Context, day time.Time) error {
	n, err := cli.stdSvc.RemindPayments(ctx, day)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d student(s) reminded\n", n)
	return nil
}

func (cli *commandLine) deleteStudent(ctx context.Context, id string, confirmed bool) error {
	s, err := cli.stdSvc.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !confirmed {
		if !isTerminalFunc(int(os.Stdin.Fd())) {
			return errNeedConfirm
		}
		fmt.Fprintf(cli.out, "Delete %s <%s>? [y/N] ", s.Name, s.Email)
		answer, err := bufio.NewReader(cli.in).ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			return errAborted
		}
	}

	if err = cli.stdSvc.Delete(ctx, s.ID); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "student %s deleted\n", s.ID)
	return nil
}
