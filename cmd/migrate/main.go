package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	flag "github.com/spf13/pflag"

	"orphanadmin/internal/migrate"
	"orphanadmin/internal/obs"
	"orphanadmin/internal/store/pg"
)

const usage = `usage: migrate [flags] up|down|seed|status`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log := obs.Named("migrate")

	flagSet := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dsn := flagSet.String("dsn", os.Getenv("ORPHAN_PG_DSN"), "PostgreSQL DSN")
	migrationsDir := flagSet.String("migrations", "", "Read migrations from this directory instead of the embedded set")
	seedsDir := flagSet.String("seeds", "", "Read seeds from this directory instead of the embedded set")
	timeout := flagSet.Duration("timeout", 30*time.Second, "Overall timeout")
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "error: missing DSN, provide --dsn or ORPHAN_PG_DSN")
		return 2
	}
	if flagSet.NArg() != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Error().Err(err).Msg("open db")
		return 1
	}
	defer db.Close()

	migrations, seeds := pg.Migrations(), pg.Seeds()
	if *migrationsDir != "" {
		migrations = os.DirFS(*migrationsDir)
	}
	if *seedsDir != "" {
		seeds = os.DirFS(*seedsDir)
	}
	mgr := migrate.NewManager(db, migrations, seeds, migrate.WithLogger(log))

	cmd := flagSet.Arg(0)
	if err := execute(ctx, mgr, cmd); err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("migrate failed")
		return 1
	}
	return 0
}

func execute(ctx context.Context, mgr *migrate.Manager, cmd string) error {
	switch cmd {
	case "up":
		applied, err := mgr.Up(ctx)
		printList("applied", applied)
		return err
	case "seed":
		applied, err := mgr.Seed(ctx)
		printList("seeded", applied)
		return err
	case "down":
		name, err := mgr.Down(ctx)
		if errors.Is(err, migrate.ErrNothingApplied) {
			fmt.Println("nothing to roll back")
			return nil
		}
		if err == nil {
			fmt.Println("rolled back", name)
		}
		return err
	case "status":
		history, err := mgr.Status(ctx)
		printList("applied", history)
		return err
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func printList(verb string, names []string) {
	if len(names) == 0 {
		fmt.Printf("%s: none\n", verb)
		return
	}
	for _, n := range names {
		fmt.Printf("%s %s\n", verb, n)
	}
}
