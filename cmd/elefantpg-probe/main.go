package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/elefantpg/elefantpg-go"
)

var (
	host     string
	port     int
	user     string
	password string
	database string
	verbose  bool

	dstHost     string
	dstPort     int
	dstUser     string
	dstPassword string
	dstDatabase string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "elefantpg-probe",
	Short:         "Connect to a PostgreSQL backend and run a query or copy through elefantpg-go",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run sql through the simple query protocol and print rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var copyOutCmd = &cobra.Command{
	Use:   "copy-out <sql>",
	Short: "Run a COPY ... TO STDOUT statement, writing chunks to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runCopyOut,
}

var copyForwardCmd = &cobra.Command{
	Use:   "copy-forward <copy-out-sql> <copy-in-sql>",
	Short: "Forward a COPY TO STDOUT statement on the source connection into a COPY FROM STDIN statement on the --dst-* connection",
	Args:  cobra.ExactArgs(2),
	RunE:  runCopyForward,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "localhost", "backend host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 5432, "backend port")
	rootCmd.PersistentFlags().StringVar(&user, "user", "postgres", "authenticating role")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "password")
	rootCmd.PersistentFlags().StringVar(&database, "database", "", "database (defaults to user)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log protocol-level notices")

	copyForwardCmd.Flags().StringVar(&dstHost, "dst-host", "localhost", "destination backend host")
	copyForwardCmd.Flags().IntVar(&dstPort, "dst-port", 5432, "destination backend port")
	copyForwardCmd.Flags().StringVar(&dstUser, "dst-user", "postgres", "destination authenticating role")
	copyForwardCmd.Flags().StringVar(&dstPassword, "dst-password", "", "destination password")
	copyForwardCmd.Flags().StringVar(&dstDatabase, "dst-database", "", "destination database (defaults to dst-user)")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(copyOutCmd)
	rootCmd.AddCommand(copyForwardCmd)
}

func connect(ctx context.Context) (*elefantpg.Conn, error) {
	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	return elefantpg.Connect(ctx,
		elefantpg.WithHost(host),
		elefantpg.WithPort(port),
		elefantpg.WithUser(user),
		elefantpg.WithPassword(password),
		elefantpg.WithDatabase(database),
		elefantpg.WithLogger(logger),
	)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	rs, err := conn.Query(ctx, args[0])
	if err != nil {
		return err
	}

	for {
		rr, err := rs.NextResultSet(ctx)
		if err != nil {
			return err
		}
		if rr == nil {
			return nil
		}

		for {
			row, err := rr.Next(ctx)
			if err != nil {
				return err
			}
			if row == nil {
				break
			}
			printRow(row)
		}

		if tag := rr.CommandTag(); tag != "" {
			fmt.Fprintln(os.Stderr, tag)
		}
	}
}

func printRow(row *elefantpg.Row) {
	for i := 0; i < row.NumColumns(); i++ {
		if i > 0 {
			fmt.Print("\t")
		}
		if row.IsNull(i) {
			fmt.Print("<NULL>")
			continue
		}
		fmt.Print(string(row.RawValue(i)))
	}
	fmt.Println()
}

func runCopyOut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	reader, err := conn.CopyFrom(ctx, args[0])
	if err != nil {
		return err
	}

	for {
		chunk, err := reader.Read(ctx)
		if err != nil {
			return err
		}
		if chunk == nil {
			return nil
		}
		if _, err := os.Stdout.Write(chunk); err != nil {
			_ = reader.End(ctx)
			return err
		}
	}
}

func runCopyForward(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := connect(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	dst, err := elefantpg.Connect(ctx,
		elefantpg.WithHost(dstHost),
		elefantpg.WithPort(dstPort),
		elefantpg.WithUser(dstUser),
		elefantpg.WithPassword(dstPassword),
		elefantpg.WithDatabase(dstDatabase),
		elefantpg.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer dst.Close()

	reader, err := src.CopyFrom(ctx, args[0])
	if err != nil {
		return err
	}

	writer, err := dst.CopyTo(ctx, args[1])
	if err != nil {
		_ = reader.End(ctx)
		return err
	}

	return elefantpg.CopyStream(ctx, reader, writer)
}
