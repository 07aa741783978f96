// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// booksCommand handles the book list and book details
func booksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "books",
		Aliases: []string{"b"},
		Usage:   "Browse books",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List one page of a category",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "category",
						Usage: "home, hot, search or recentlyRead",
						Value: "home",
					},
					&cli.StringFlag{
						Name:    "keyword",
						Aliases: []string{"k"},
						Usage:   "Search keyword (implies --category search)",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Index of the first book",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of books, 0 for the configured page size",
					},
				}, jsonFlags()...),
				Action: r.BooksList,
			},
			{
				Name:      "show",
				Usage:     "Show a book and where reading left off",
				ArgsUsage: "<id>",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "chapters",
						Usage: "Also list the table of contents",
					},
					&cli.BoolFlag{
						Name:  "cover",
						Usage: "Draw the cover on terminals with image support",
					},
					&cli.StringFlag{
						Name:  "image-mode",
						Usage: "auto, none, kitty, iterm or sixel",
						Value: "auto",
					},
				}, jsonFlags()...),
				Action: r.BooksShow,
			},
		},
	}
}

// chapterCommand prints chapter content
func chapterCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "chapter",
		Aliases: []string{"ch"},
		Usage:   "Read chapters",
		Commands: []*cli.Command{
			{
				Name:      "read",
				Usage:     "Print a chapter and record it as read",
				ArgsUsage: "<book id> <chapter no>",
				Flags:     jsonFlags(),
				Action:    r.ChapterRead,
			},
		},
	}
}

// recentCommand handles the local reading history
func recentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "Recently read books",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List read records, most recent first",
				Flags:   jsonFlags(),
				Action:  r.RecentList,
			},
			{
				Name:   "clear",
				Usage:  "Forget every read record",
				Action: r.RecentClear,
			},
		},
	}
}

// adminCommand handles book updates, which require an admin token
func adminCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Administrative operations",
		Commands: []*cli.Command{
			{
				Name:      "update-book",
				Usage:     "Change the hotness, summary or cover of a book",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "hot",
						Usage: "Hotness between 1 and 100",
					},
					&cli.StringFlag{
						Name:  "summary",
						Usage: "Summary of 1 to 2000 characters",
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Cover image URL",
					},
				},
				Action: r.AdminUpdateBook,
			},
		},
	}
}

func meCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "me",
		Usage:  "Show the account behind the configured token",
		Flags:  jsonFlags(),
		Action: r.Me,
	}
}

func pingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Check that the server is reachable",
		Action: r.Ping,
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write the default configuration file",
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: r.ConfigShow,
			},
			{
				Name:      "set-token",
				Usage:     "Store the session token",
				ArgsUsage: "<token>",
				Action:    r.ConfigSetToken,
			},
		},
	}
}
