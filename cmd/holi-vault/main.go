package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"holi.app/vault/grant"
	"holi.app/vault/identity"
	"holi.app/vault/project"
	"holi.app/vault/storage"
	"holi.app/vault/storage/localfs"
	"holi.app/vault/storage/registry"

	_ "holi.app/vault/storage/boltdb"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "identity":
		return cmdIdentity(args[1:], out, errOut)
	case "project":
		return cmdProject(args[1:], out, errOut)
	case "collab":
		return cmdCollab(args[1:], out, errOut)
	case "file":
		return cmdFile(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "holi-vault: local-first project vault CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  holi-vault identity init [--alias <name>] [--identity-dir <dir>]")
	fmt.Fprintln(w, "  holi-vault identity list [--identity-dir <dir>]")
	fmt.Fprintln(w, "  holi-vault project create --name <name> [storage flags]")
	fmt.Fprintln(w, "  holi-vault project list [storage flags]")
	fmt.Fprintln(w, "  holi-vault project delete --id <projectID> [storage flags]")
	fmt.Fprintln(w, "  holi-vault collab add --project <id> --did <did> [--name <n>] [--role owner|editor|viewer] [storage flags]")
	fmt.Fprintln(w, "  holi-vault collab remove --project <id> --did <did> [storage flags]")
	fmt.Fprintln(w, "  holi-vault file put --project <id> --path <dst> <file> [storage flags]")
	fmt.Fprintln(w, "  holi-vault file get --project <id> --path <dst> [storage flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Storage flags:")
	fmt.Fprintln(w, "  --config <file>   JSON backend config (mode + backends)")
	fmt.Fprintln(w, "  --root <dir>      native filesystem root (default ~/.holi/projects)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - identities live under ~/.holi/identities (0600 key files)")
	fmt.Fprintln(w, "  - file put prints the content id of the written bytes")
}

func newLogger(errOut io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// storageFlags are the shared backend-selection flags of every durable
// command.
type storageFlags struct {
	config string
	root   string
}

func (sf *storageFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.config, "config", "", "backend config file")
	fs.StringVar(&sf.root, "root", "", "native filesystem root")
}

func (sf *storageFlags) open(logger *slog.Logger) (*storage.Context, func() error, error) {
	if sf.config != "" {
		cfg, err := registry.LoadFile(sf.config)
		if err != nil {
			return nil, nil, err
		}
		return registry.BuildContext(cfg, logger)
	}

	root := sf.root
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, err
		}
		root = filepath.Join(home, ".holi", "projects")
	}
	ws, err := localfs.New(root, logger)
	if err != nil {
		return nil, nil, err
	}
	ctx := storage.NewContext(storage.ModeNative)
	ctx.Attach(storage.ModeNative, ws)
	return ctx, func() error { return nil }, nil
}

func openProjectManager(sf *storageFlags, identityDir string, logger *slog.Logger) (*project.Manager, func() error, error) {
	ids, err := identity.NewManager(identityDir, logger)
	if err != nil {
		return nil, nil, err
	}
	self, err := ids.EnsurePrimaryIdentity("")
	if err != nil {
		return nil, nil, err
	}
	ctx, closer, err := sf.open(logger)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := project.NewManager(ctx, self.ID, self.Alias, grant.NewStore(), nil, logger)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return mgr, closer, nil
}

func cmdIdentity(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: holi-vault identity <init|list> ...")
		return 2
	}
	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("identity init", flag.ContinueOnError)
		fs.SetOutput(errOut)
		alias := fs.String("alias", "", "display name")
		dir := fs.String("identity-dir", "", "identity directory")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		mgr, err := identity.NewManager(*dir, newLogger(errOut))
		if err != nil {
			fmt.Fprintf(errOut, "identity init: %v\n", err)
			return 1
		}
		ident, err := mgr.CreateIdentity(*alias, nil)
		if err != nil {
			fmt.Fprintf(errOut, "identity init: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, ident.ID)
		return 0
	case "list":
		fs := flag.NewFlagSet("identity list", flag.ContinueOnError)
		fs.SetOutput(errOut)
		dir := fs.String("identity-dir", "", "identity directory")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		mgr, err := identity.NewManager(*dir, newLogger(errOut))
		if err != nil {
			fmt.Fprintf(errOut, "identity list: %v\n", err)
			return 1
		}
		all, err := mgr.Identities()
		if err != nil {
			fmt.Fprintf(errOut, "identity list: %v\n", err)
			return 1
		}
		for _, ident := range all {
			if ident.Alias != "" {
				fmt.Fprintf(out, "%s\t%s\n", ident.ID, ident.Alias)
			} else {
				fmt.Fprintln(out, ident.ID)
			}
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown identity subcommand: %s\n", args[0])
		return 2
	}
}

func cmdProject(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: holi-vault project <create|list|delete> ...")
		return 2
	}
	logger := newLogger(errOut)
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("project create", flag.ContinueOnError)
		fs.SetOutput(errOut)
		name := fs.String("name", "", "project name")
		identityDir := fs.String("identity-dir", "", "identity directory")
		var sf storageFlags
		sf.register(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *name == "" {
			fmt.Fprintln(errOut, "project create: --name is required")
			return 2
		}
		mgr, closer, err := openProjectManager(&sf, *identityDir, logger)
		if err != nil {
			fmt.Fprintf(errOut, "project create: %v\n", err)
			return 1
		}
		defer closer()
		rec, err := mgr.CreateProject(*name)
		if err != nil {
			fmt.Fprintf(errOut, "project create: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, rec.ID)
		return 0
	case "list":
		fs := flag.NewFlagSet("project list", flag.ContinueOnError)
		fs.SetOutput(errOut)
		identityDir := fs.String("identity-dir", "", "identity directory")
		var sf storageFlags
		sf.register(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		mgr, closer, err := openProjectManager(&sf, *identityDir, logger)
		if err != nil {
			fmt.Fprintf(errOut, "project list: %v\n", err)
			return 1
		}
		defer closer()
		projects, err := mgr.Projects()
		if err != nil {
			fmt.Fprintf(errOut, "project list: %v\n", err)
			return 1
		}
		for _, rec := range projects {
			fmt.Fprintf(out, "%s\t%s\t%s\n", rec.ID, rec.Role, rec.Name)
		}
		return 0
	case "delete":
		fs := flag.NewFlagSet("project delete", flag.ContinueOnError)
		fs.SetOutput(errOut)
		id := fs.String("id", "", "project id")
		identityDir := fs.String("identity-dir", "", "identity directory")
		var sf storageFlags
		sf.register(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *id == "" {
			fmt.Fprintln(errOut, "project delete: --id is required")
			return 2
		}
		mgr, closer, err := openProjectManager(&sf, *identityDir, logger)
		if err != nil {
			fmt.Fprintf(errOut, "project delete: %v\n", err)
			return 1
		}
		defer closer()
		if err := mgr.DeleteProject(*id); err != nil {
			fmt.Fprintf(errOut, "project delete: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown project subcommand: %s\n", args[0])
		return 2
	}
}

func cmdCollab(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: holi-vault collab <add|remove> ...")
		return 2
	}
	logger := newLogger(errOut)
	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("collab add", flag.ContinueOnError)
		fs.SetOutput(errOut)
		projectID := fs.String("project", "", "project id")
		did := fs.String("did", "", "collaborator did")
		name := fs.String("name", "", "collaborator display name")
		role := fs.String("role", string(storage.RoleEditor), "owner|editor|viewer")
		identityDir := fs.String("identity-dir", "", "identity directory")
		var sf storageFlags
		sf.register(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *projectID == "" || *did == "" {
			fmt.Fprintln(errOut, "collab add: --project and --did are required")
			return 2
		}
		mgr, closer, err := openProjectManager(&sf, *identityDir, logger)
		if err != nil {
			fmt.Fprintf(errOut, "collab add: %v\n", err)
			return 1
		}
		defer closer()
		if err := mgr.AddCollaborator(*projectID, *did, *name, storage.Role(*role)); err != nil {
			fmt.Fprintf(errOut, "collab add: %v\n", err)
			return 1
		}
		return 0
	case "remove":
		fs := flag.NewFlagSet("collab remove", flag.ContinueOnError)
		fs.SetOutput(errOut)
		projectID := fs.String("project", "", "project id")
		did := fs.String("did", "", "collaborator did")
		identityDir := fs.String("identity-dir", "", "identity directory")
		var sf storageFlags
		sf.register(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *projectID == "" || *did == "" {
			fmt.Fprintln(errOut, "collab remove: --project and --did are required")
			return 2
		}
		mgr, closer, err := openProjectManager(&sf, *identityDir, logger)
		if err != nil {
			fmt.Fprintf(errOut, "collab remove: %v\n", err)
			return 1
		}
		defer closer()
		if err := mgr.RemoveCollaborator(*projectID, *did); err != nil {
			fmt.Fprintf(errOut, "collab remove: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown collab subcommand: %s\n", args[0])
		return 2
	}
}

func cmdFile(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: holi-vault file <put|get> ...")
		return 2
	}
	logger := newLogger(errOut)
	switch args[0] {
	case "put":
		fs := flag.NewFlagSet("file put", flag.ContinueOnError)
		fs.SetOutput(errOut)
		projectID := fs.String("project", "", "project id")
		path := fs.String("path", "", "project-relative destination path")
		identityDir := fs.String("identity-dir", "", "identity directory")
		var sf storageFlags
		sf.register(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *projectID == "" || *path == "" || fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: holi-vault file put --project <id> --path <dst> <file>")
			return 2
		}
		data, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "file put: %v\n", err)
			return 1
		}
		mgr, closer, err := openProjectManager(&sf, *identityDir, logger)
		if err != nil {
			fmt.Fprintf(errOut, "file put: %v\n", err)
			return 1
		}
		defer closer()
		cid, err := mgr.SaveProjectFile(*projectID, *path, data)
		if err != nil {
			fmt.Fprintf(errOut, "file put: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, cid)
		return 0
	case "get":
		fs := flag.NewFlagSet("file get", flag.ContinueOnError)
		fs.SetOutput(errOut)
		projectID := fs.String("project", "", "project id")
		path := fs.String("path", "", "project-relative path")
		identityDir := fs.String("identity-dir", "", "identity directory")
		var sf storageFlags
		sf.register(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *projectID == "" || *path == "" {
			fmt.Fprintln(errOut, "usage: holi-vault file get --project <id> --path <dst>")
			return 2
		}
		mgr, closer, err := openProjectManager(&sf, *identityDir, logger)
		if err != nil {
			fmt.Fprintf(errOut, "file get: %v\n", err)
			return 1
		}
		defer closer()
		data, err := mgr.ReadProjectFile(*projectID, *path)
		if err != nil {
			fmt.Fprintf(errOut, "file get: %v\n", err)
			return 1
		}
		if _, err := out.Write(data); err != nil {
			fmt.Fprintf(errOut, "file get: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown file subcommand: %s\n", args[0])
		return 2
	}
}
