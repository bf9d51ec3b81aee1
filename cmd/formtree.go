// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/choria-io/fisk"
	"github.com/choria-io/formtree"
	"github.com/choria-io/formtree/fill"
	"github.com/choria-io/formtree/validation"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	storeDir     string
	database     string
	configFile   string
	debug        bool
	formID       string
	formTitle    string
	scriptFile   string
	jsonData     string
	templateFile string
	engineString string
	exclusions   []string
	version      string

	log *zap.SugaredLogger
)

func main() {
	app := fisk.New("formtree", "Builds, fills and renders forms")
	app.Version(version)

	app.Help = `
Manage form definitions made of nested elements.

Forms are stored as YAML documents in a directory or in a SQLite database,
they can be edited using scripts, filled in interactively and submissions
can be validated and rendered using templates.
`
	app.Flag("store", "Directory holding form documents").PlaceHolder("DIR").StringVar(&storeDir)
	app.Flag("db", "SQLite database holding form documents").PlaceHolder("FILE").StringVar(&database)
	app.Flag("config", "Configuration file").PlaceHolder("FILE").ExistingFileVar(&configFile)
	app.Flag("debug", "Enables debug logging").BoolVar(&debug)

	app.Command("list", "Lists stored forms").Alias("ls").Action(listAction)

	tree := app.Command("tree", "Shows the elements of a form").Action(treeAction)
	tree.Arg("form", "The form to show").Required().StringVar(&formID)

	create := app.Command("create", "Creates a new empty form").Action(createAction)
	create.Arg("form", "The form to create").Required().StringVar(&formID)
	create.Arg("title", "The form title").StringVar(&formTitle)

	edit := app.Command("edit", "Edits a form using an edit script").Action(editAction)
	edit.HelpLong(`
Edit scripts hold one command per line, values are YAML:

   add PARENT KEY TYPE [PROPERTY=VALUE...]
   set KEY PROPERTY=VALUE...
   unset KEY PROPERTY...
   delete KEY
   move KEY PARENT [POSITION]

Use . as PARENT to refer to the root of the form. The script is
applied as a whole or not at all.
`)
	edit.Arg("form", "The form to edit").Required().StringVar(&formID)
	edit.Arg("script", "The edit script, - for standard input").Required().StringVar(&scriptFile)

	del := app.Command("delete", "Deletes a form").Alias("rm").Action(deleteAction)
	del.Arg("form", "The form to delete").Required().StringVar(&formID)

	fillCmd := app.Command("fill", "Fills in a form interactively").Action(fillAction)
	fillCmd.Arg("form", "The form to fill in").Required().StringVar(&formID)
	fillCmd.Flag("json", "Loads default answers from a JSON file").PlaceHolder("FILE").ExistingFileVar(&jsonData)

	validate := app.Command("validate", "Validates a submission").Action(validateAction)
	validate.Arg("form", "The form the submission belongs to").Required().StringVar(&formID)
	validate.Arg("submission", "JSON file holding the submission").Required().ExistingFileVar(&jsonData)

	render := app.Command("render", "Renders a submission using a template").Action(renderAction)
	render.Arg("form", "The form the submission belongs to").Required().StringVar(&formID)
	render.Arg("submission", "JSON file holding the submission").Required().ExistingFileVar(&jsonData)
	render.Arg("template", "The template to render").Required().ExistingFileVar(&templateFile)
	render.Flag("engine", "The template engine to use (jet, go)").Default("go").EnumVar(&engineString, "jet", "go")
	render.Flag("exclude", "Excludes a field from the output").PlaceHolder("KEY").StringsVar(&exclusions)

	excluded := app.Command("excluded", "Lists fields that can be excluded from output").Action(excludedAction)
	excluded.Arg("form", "The form to inspect").Required().StringVar(&formID)
	excluded.Flag("exclude", "Excludes a field").PlaceHolder("KEY").StringsVar(&exclusions)

	app.MustParseWithUsage(os.Args[1:])
}

func setupLogger() error {
	if log != nil {
		return nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log = logger.Sugar()

	return nil
}

func newEditor(ctx context.Context) (*formtree.Editor, error) {
	err := setupLogger()
	if err != nil {
		return nil, err
	}

	cfg := &formtree.Config{}
	if configFile != "" {
		cfg, err = formtree.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
	}

	if storeDir != "" {
		cfg.StorageDirectory = storeDir
		cfg.Database = ""
	}
	if database != "" {
		cfg.Database = database
		cfg.StorageDirectory = ""
	}
	if len(exclusions) > 0 {
		cfg.Excluded = exclusions
	}

	return formtree.New(ctx, *cfg, formtree.WithLogger(log))
}

func openEditor(ctx context.Context) (*formtree.Editor, error) {
	e, err := newEditor(ctx)
	if err != nil {
		return nil, err
	}

	err = e.Open(ctx, formID)
	if err != nil {
		e.Close()
		return nil, err
	}

	return e, nil
}

func readSubmission() (map[string]any, error) {
	data := map[string]any{}
	if jsonData == "" {
		return data, nil
	}

	df, err := os.ReadFile(jsonData)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(df, &data)
	if err != nil {
		return nil, fmt.Errorf("invalid submission %s: %w", jsonData, err)
	}

	return data, nil
}

func listAction(_ *fisk.ParseContext) error {
	ctx := context.Background()

	e, err := newEditor(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	ids, err := e.Forms(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		fmt.Println(id)
	}

	return nil
}

func treeAction(_ *fisk.ParseContext) error {
	ctx := context.Background()

	e, err := openEditor(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	flat, err := e.Flatten()
	if err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleRounded)
	if title := flat.Metadata.String("title"); title != "" {
		tbl.SetTitle(title)
	}
	tbl.AppendHeader(table.Row{"Key", "Type", "Kind", "Title", "Weight", "Parent", "States"})

	for _, n := range flat.Nodes {
		d, _ := e.Registry().Lookup(n.Type)
		title := n.Properties.String("title")
		if title == "" {
			title = n.Properties.String("markup")
		}

		tbl.AppendRow(table.Row{
			strings.Repeat("  ", n.Depth) + n.Key,
			n.Type,
			d.Kind,
			title,
			n.Weight,
			n.ParentKey,
			n.Properties.Has("states"),
		})
	}

	tbl.Render()

	return nil
}

func createAction(_ *fisk.ParseContext) error {
	ctx := context.Background()

	e, err := newEditor(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	err = e.Create(formID, formTitle)
	if err != nil {
		return err
	}

	return e.Save(ctx)
}

func editAction(_ *fisk.ParseContext) error {
	ctx := context.Background()

	e, err := openEditor(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	var script io.Reader = os.Stdin
	if scriptFile != "-" {
		f, err := os.Open(scriptFile)
		if err != nil {
			return err
		}
		defer f.Close()
		script = f
	}

	err = e.ApplyScript(script)
	if err != nil {
		return err
	}

	return e.Save(ctx)
}

func deleteAction(_ *fisk.ParseContext) error {
	ctx := context.Background()

	e, err := newEditor(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	return e.DeleteForm(ctx, formID)
}

func fillAction(_ *fisk.ParseContext) error {
	ctx := context.Background()

	e, err := openEditor(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	defaults, err := readSubmission()
	if err != nil {
		return err
	}

	doc, err := e.Document()
	if err != nil {
		return err
	}

	env := map[string]any{}
	for _, val := range os.Environ() {
		parts := strings.SplitN(val, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}

	answers, err := fill.Fill(doc, map[string]any{"ENVIRONMENT": env}, fill.WithRegistry(e.Registry()), fill.WithLogger(log), fill.WithValues(defaults))
	if err != nil {
		return err
	}

	err = showValidation(e.Validate(answers))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}

func validateAction(_ *fisk.ParseContext) error {
	ctx := context.Background()

	e, err := openEditor(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	data, err := readSubmission()
	if err != nil {
		return err
	}

	err = showValidation(e.Validate(data))
	if err != nil {
		return err
	}

	fmt.Println("Submission is valid")

	return nil
}

// showValidation prints every validation problem in err, other errors are
// returned as is
func showValidation(err error) error {
	if err == nil {
		return nil
	}

	errs := validation.Errors(err)
	if len(errs) == 0 {
		return err
	}

	for _, verr := range errs {
		fmt.Printf("  %s\n", verr)
	}

	return fmt.Errorf("submission has %d validation errors", len(errs))
}

func renderAction(_ *fisk.ParseContext) error {
	ctx := context.Background()

	e, err := openEditor(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	data, err := readSubmission()
	if err != nil {
		return err
	}

	tmpl, err := os.ReadFile(templateFile)
	if err != nil {
		return err
	}

	out, err := e.RenderSubmission(data, string(tmpl), formtree.Engine(engineString))
	if err != nil {
		return err
	}

	fmt.Print(out)

	return nil
}

func excludedAction(_ *fisk.ParseContext) error {
	ctx := context.Background()

	e, err := openEditor(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	fields, err := e.ExcludedOptions()
	if err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleRounded)
	tbl.AppendHeader(table.Row{"Key", "Title", "Type"})
	for _, f := range fields {
		tbl.AppendRow(table.Row{f.Key, f.Title, f.Type})
	}
	tbl.Render()

	return nil
}
