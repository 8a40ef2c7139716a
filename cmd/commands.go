package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/export"
	"github.com/ArCaneSec/apidock/internal/importer"
	"github.com/ArCaneSec/apidock/internal/jobs"
	"github.com/ArCaneSec/apidock/internal/notifs"
	"github.com/ArCaneSec/apidock/internal/server"
	"github.com/ArCaneSec/apidock/internal/store"

	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			handleServe(cmd.Context(), a)
		},
	}
}

func handleServe(ctx context.Context, a *app) {
	db := a.openDB(ctx)
	defer store.Close(db)

	svc := apidoc.New(db, a.log)
	notify := notifs.NewNotif(a.cfg.Notify.DiscordWebhook, a.log)

	exports, err := export.New(a.cfg.Export.Dir, a.log)
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}

	scheduler, err := jobs.ScheduleJobs(jobs.Config{
		ExportRetention: a.cfg.Export.Retention,
		PurgeInterval:   a.cfg.Export.PurgeInterval,
	}, exports, a.log)
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}

	srv := server.New(server.Deps{
		API:     svc,
		Exports: exports,
		Importer: importer.New(svc,
			importer.WithTimeout(a.cfg.Import.Timeout),
			importer.WithNotify(notify),
			importer.WithLogger(a.log),
		),
		Notify:    notify,
		JWTSecret: a.cfg.Auth.JWTSecret,
		Log:       a.log,
	})

	info.Printf("[*] Serving on %s\n", a.cfg.HTTP.Addr)
	err = srv.Run(a.cfg.HTTP.Addr, func() {
		if err := scheduler.Shutdown(); err != nil {
			a.log.Error("scheduler shutdown", "error", err)
		}
	})
	if err != nil {
		scheduler.Shutdown()
		exit(fmt.Sprintf("[!] %s", err), 1)
	}
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the schema to the database",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			db := a.openDB(cmd.Context())
			defer store.Close(db)

			if err := store.Migrate(cmd.Context(), db); err != nil {
				exit(fmt.Sprintf("[!] %s", err), 1)
			}
			info.Println("[*] Database schema has changed successfully.")
		},
	}
}

func flushCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Drop every table",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if !yes {
				exit("[!] Refusing to flush without --yes.", 1)
			}
			db := a.openDB(cmd.Context())
			defer store.Close(db)

			if err := store.Flush(db); err != nil {
				exit(fmt.Sprintf("[!] %s", err), 1)
			}
			info.Println("[*] Database has been flushed successfully.")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm dropping all data")
	return cmd
}

func projectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	var in apidoc.ProjectInput
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			in.Name = args[0]
			handleProjectAdd(cmd.Context(), a, &in)
		},
	}
	add.Flags().StringVar(&in.Version, "version", "", "project version")
	add.Flags().StringVar(&in.Type, "type", "", "project type")
	add.Flags().StringVar(&in.Description, "description", "", "project description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			handleProjectList(cmd.Context(), a)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a project with everything filed under it",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			handleProjectRemove(cmd.Context(), a, args[0])
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func handleProjectAdd(ctx context.Context, a *app, in *apidoc.ProjectInput) {
	db := a.openDB(ctx)
	defer store.Close(db)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id, err := apidoc.New(db, a.log).CreateProject(ctx, in)
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}
	info.Printf("[*] Created %s project with id %d.\n", in.Name, id)
}

func handleProjectList(ctx context.Context, a *app) {
	db := a.openDB(ctx)
	defer store.Close(db)

	projects, err := apidoc.New(db, a.log).ListProjects(ctx)
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}
	if len(projects) == 0 {
		notes.Println("[#] No projects yet.")
		return
	}
	for _, p := range projects {
		notes.Printf("[#] %d\t%s\t%s\t%s\n", p.ID, p.Name, p.Version, p.Description)
	}
}

func handleProjectRemove(ctx context.Context, a *app, rawID string) {
	id, err := apidoc.ParseID(rawID)
	if err != nil {
		exit(fmt.Sprintf("[!] Invalid project id: %s.", rawID), 1)
	}

	db := a.openDB(ctx)
	defer store.Close(db)

	if err := apidoc.New(db, a.log).DeleteProject(ctx, id); err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}
	info.Printf("[*] Removed project %d.\n", id)
}

func importCmd(a *app) *cobra.Command {
	var actor uint
	cmd := &cobra.Command{
		Use:   "import <project-id> <url|file>",
		Short: "Import an OpenAPI 3 or Swagger 2 document into a project",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			handleImport(cmd.Context(), a, actor, args[0], args[1])
		},
	}
	cmd.Flags().UintVar(&actor, "actor", 0, "user id recorded as the author of the import")
	return cmd
}

func handleImport(ctx context.Context, a *app, actor uint, rawID, source string) {
	projectID, err := apidoc.ParseID(rawID)
	if err != nil {
		exit(fmt.Sprintf("[!] Invalid project id: %s.", rawID), 1)
	}

	db := a.openDB(ctx)
	defer store.Close(db)

	svc := apidoc.New(db, a.log)
	im := importer.New(svc,
		importer.WithTimeout(a.cfg.Import.Timeout),
		importer.WithNotify(notifs.NewNotif(a.cfg.Notify.DiscordWebhook, a.log)),
		importer.WithLogger(a.log),
	)

	var res *importer.Result
	if data, rerr := os.ReadFile(source); rerr == nil {
		res, err = im.ImportData(ctx, actor, projectID, source, data)
	} else {
		res, err = im.Import(ctx, actor, projectID, source)
	}
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}

	info.Printf("[*] Imported %d APIs.\n", len(res.Created))
	for _, name := range res.Skipped {
		notes.Printf("[#] Skipped %s, the project already has it.\n", name)
	}
}

func exportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Render a project's catalogue into the export directory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			handleExport(cmd.Context(), a, args[0], format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatMarkdown), "md or yaml")
	return cmd
}

func handleExport(ctx context.Context, a *app, rawID, rawFormat string) {
	projectID, err := apidoc.ParseID(rawID)
	if err != nil {
		exit(fmt.Sprintf("[!] Invalid project id: %s.", rawID), 1)
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}

	db := a.openDB(ctx)
	defer store.Close(db)

	c, err := apidoc.New(db, a.log).Catalogue(ctx, projectID)
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}
	exports, err := export.New(a.cfg.Export.Dir, a.log)
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}
	name, err := exports.Render(c, format)
	if err != nil {
		exit(fmt.Sprintf("[!] %s", err), 1)
	}
	info.Printf("[*] Wrote %s.\n", filepath.Join(exports.Dir(), name))
}
