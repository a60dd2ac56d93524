// Package protoforge implements the protoforge CLI: searching, inspecting,
// validating, and editing the prototype store from the command line.
package protoforge

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/louisbranch/protoforge/internal/listing"
	"github.com/louisbranch/protoforge/internal/lock"
	platformcmd "github.com/louisbranch/protoforge/internal/platform/cmd"
	"github.com/louisbranch/protoforge/internal/prototype"
	"github.com/louisbranch/protoforge/internal/prototype/protofunc"
	"github.com/louisbranch/protoforge/internal/prototype/service"
	"github.com/louisbranch/protoforge/internal/prototype/validate"
	"github.com/louisbranch/protoforge/internal/random"
	"github.com/louisbranch/protoforge/internal/registry"
	"github.com/louisbranch/protoforge/internal/storage/sqlite"
)

// Config holds the CLI's environment configuration.
type Config struct {
	// DBPath locates the SQLite prototype store.
	DBPath string `env:"PROTOFORGE_DB_PATH" envDefault:"protoforge.db"`
	// PrototypeModules lists Lua files declaring read-only prototypes.
	PrototypeModules []string `env:"PROTOFORGE_PROTOTYPE_MODULES" envSeparator:":"`
	// FuncModules lists Lua files contributing extra protofunctions.
	FuncModules []string `env:"PROTOFORGE_FUNC_MODULES" envSeparator:":"`
	// Typeclasses lists the known runtime base types.
	Typeclasses []string `env:"PROTOFORGE_TYPECLASSES" envSeparator:","`
}

const usage = `usage: protoforge <command> [flags]

commands:
  list      search prototypes and print a table
  show      print one prototype (optionally with parents merged in)
  create    create or update a persisted prototype from a YAML file
  delete    delete a persisted prototype
  validate  check a prototype's parent chain
  spawned   list entities spawned from a prototype key
`

// Run executes the CLI with the given arguments.
func Run(ctx context.Context, args []string, stdout io.Writer) error {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("a command is required")
	}

	svc, closeStore, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	command, rest := args[0], args[1:]
	switch command {
	case "list":
		return runList(ctx, svc, rest, stdout)
	case "show":
		return runShow(ctx, svc, rest, stdout)
	case "create":
		return runCreate(ctx, svc, rest, stdout)
	case "delete":
		return runDelete(ctx, svc, rest, stdout)
	case "validate":
		return runValidate(ctx, svc, rest, stdout)
	case "spawned":
		return runSpawned(ctx, svc, rest, stdout)
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

type cliService struct {
	service *service.Service
	library *registry.Library
	funcs   *protofunc.Registry
}

func buildService(cfg Config) (*cliService, func(), error) {
	modules, err := registry.LoadLuaModules(cfg.PrototypeModules...)
	if err != nil {
		return nil, nil, err
	}
	library, err := registry.Load(modules...)
	if err != nil {
		return nil, nil, err
	}
	seed1, seed2, err := random.NewSeed()
	if err != nil {
		return nil, nil, err
	}
	rng := rand.New(rand.NewPCG(seed1, seed2))
	funcs := protofunc.NewRegistry()
	funcs.RegisterAll(protofunc.Builtins(protofunc.BuiltinConfig{
		IntN:  rng.IntN,
		Float: rng.Float64,
	}))
	for _, path := range cfg.FuncModules {
		if strings.TrimSpace(path) == "" {
			continue
		}
		module, err := protofunc.LoadLuaModule(path)
		if err != nil {
			return nil, nil, err
		}
		funcs.RegisterAll(module.Funcs())
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	typeclasses := prototype.TypeclassSet{}
	for _, name := range cfg.Typeclasses {
		if name = strings.TrimSpace(name); name != "" {
			typeclasses[name] = true
		}
	}
	svc := service.New(library, store,
		service.WithSpawnStore(store),
		service.WithTypeclasses(typeclasses),
	)
	closeStore := func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close store: %v\n", err)
		}
	}
	return &cliService{service: svc, library: library, funcs: funcs}, closeStore, nil
}

func runList(ctx context.Context, svc *cliService, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	key := fs.String("key", "", "exact or partial prototype key")
	tag := fs.String("tag", "", "comma-separated tag filter")
	all := fs.Bool("all", false, "include prototypes the caller may not use or edit")
	perms := fs.String("perm", "", "comma-separated caller permissions")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}
	matches, err := svc.service.Search(ctx, *key, splitList(*tag))
	if err != nil {
		return err
	}
	table := listing.Format(matches, callerFromPerms(*perms), lock.BasicChecker{}, svc.library, listing.Options{
		ShowNonUsable:   *all,
		ShowNonEditable: true,
	})
	if table == "" {
		fmt.Fprintln(stdout, "no prototypes found")
		return nil
	}
	fmt.Fprint(stdout, table)
	return nil
}

func runShow(ctx context.Context, svc *cliService, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	key := fs.String("key", "", "prototype key")
	flat := fs.Bool("flat", false, "merge the parent chain into the output")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}
	if *key == "" {
		return errors.New("-key is required")
	}
	if *flat {
		proto, err := svc.service.Flattened(ctx, *key)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, proto.String())
		return nil
	}
	matches, err := svc.service.Search(ctx, *key, nil)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("prototype %s not found", *key)
	}
	for i, proto := range matches {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintln(stdout, proto.String())
	}
	return nil
}

func runCreate(ctx context.Context, svc *cliService, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	file := fs.String("file", "", "YAML file holding the prototype definition")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}
	content, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read definition: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return fmt.Errorf("decode definition: %w", err)
	}
	proto, err := prototype.FromMap(raw)
	if err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}
	saved, err := svc.service.Save(ctx, proto)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "saved prototype %s\n", saved.Key)
	return nil
}

func runDelete(ctx context.Context, svc *cliService, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	key := fs.String("key", "", "prototype key")
	perms := fs.String("perm", "", "comma-separated caller permissions")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}
	if *key == "" {
		return errors.New("-key is required")
	}
	if err := svc.service.Delete(ctx, *key, callerFromPerms(*perms)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted prototype %s\n", *key)
	return nil
}

func runValidate(ctx context.Context, svc *cliService, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	key := fs.String("key", "", "prototype key to validate")
	file := fs.String("file", "", "YAML definition to validate instead of a stored key")
	mixin := fs.Bool("mixin", false, "validate as a mixin fragment rather than a spawn base")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}

	var proto prototype.Prototype
	switch {
	case *file != "":
		content, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("read definition: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return fmt.Errorf("decode definition: %w", err)
		}
		proto, err = prototype.FromMap(raw)
		if err != nil {
			return fmt.Errorf("invalid definition: %w", err)
		}
	case *key != "":
		matches, err := svc.service.Search(ctx, *key, nil)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("prototype %s not found", *key)
		}
		proto = matches[0]
	default:
		return errors.New("-key or -file is required")
	}

	err := svc.service.Validate(ctx, &proto, *mixin)
	var warning *validate.Warning
	switch {
	case err == nil:
	case errors.As(err, &warning):
		fmt.Fprintln(stdout, warning.Error())
	default:
		return err
	}

	clean := true
	for _, attrKey := range sortedKeys(proto.Attrs) {
		_, diag := svc.funcs.ParseForTest(protofunc.CallContext{
			Context:   ctx,
			Prototype: proto.ToMap(),
			Key:       attrKey,
		}, proto.Attrs[attrKey])
		if diag != "" {
			clean = false
			fmt.Fprintf(stdout, "Warning: %s: %s\n", attrKey, diag)
		}
	}
	if err == nil && clean {
		fmt.Fprintf(stdout, "prototype %s validates\n", proto.Key)
	}
	return nil
}

func sortedKeys(attrs map[string]any) []string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func runSpawned(ctx context.Context, svc *cliService, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("spawned", flag.ContinueOnError)
	key := fs.String("key", "", "prototype key")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}
	if *key == "" {
		return errors.New("-key is required")
	}
	entityIDs, err := svc.service.SpawnedFrom(ctx, *key)
	if err != nil {
		return err
	}
	if len(entityIDs) == 0 {
		fmt.Fprintf(stdout, "no entities spawned from %s\n", *key)
		return nil
	}
	for _, entityID := range entityIDs {
		fmt.Fprintln(stdout, entityID)
	}
	return nil
}

func callerFromPerms(perms string) lock.Subject {
	list := splitList(perms)
	if len(list) == 0 {
		return nil
	}
	return lock.Perms(list)
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
