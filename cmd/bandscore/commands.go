package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pavelanni/bandscore/internal/band"
	"github.com/pavelanni/bandscore/internal/content"
	"github.com/pavelanni/bandscore/internal/grading"
	appI18n "github.com/pavelanni/bandscore/internal/i18n"
	"github.com/pavelanni/bandscore/internal/model"
	"github.com/pavelanni/bandscore/internal/numbering"
	"github.com/pavelanni/bandscore/internal/report"
	"github.com/pavelanni/bandscore/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import test content JSON files into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "bandscore.db", "SQLite database path")
	addCommonFlags(cmd)
	return cmd
}

func numberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "number <file>",
		Short: "Print the question numbering and statistics of a test content file",
		Args:  cobra.ExactArgs(1),
		RunE:  runNumber,
	}
	cmd.Flags().Bool("json", false, "Print the full numbering result as JSON")
	addCommonFlags(cmd)
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade an answer sheet against a test content file",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.String("content", "", "Test content JSON file (required)")
	f.String("answers", "", "Answers JSON file mapping question numbers to answers (required)")
	f.String("overrides", "", "Manual grades JSON file mapping question numbers to correct, incorrect or auto")
	f.Bool("json", false, "Print the full report as JSON")
	addGradingFlags(cmd)
	addCommonFlags(cmd)

	_ = cmd.MarkFlagRequired("content")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export graded submissions as JSON or XLSX",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "bandscore.db", "SQLite database path")
	f.String("format", "json", "Output format (json, xlsx)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.StringP("lang", "l", "en", "Language for XLSX headers and labels (en, ru)")
	addGradingFlags(cmd)
	addCommonFlags(cmd)
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	reg := band.NewRegistry()
	if err := band.LoadConfig(v, reg); err != nil {
		return fmt.Errorf("load band tables: %w", err)
	}

	n, err := importTests(db, reg, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d file(s)\n", n, len(args))
	return nil
}

// importTests stores each content file as a test. Files whose content
// hash matches the last import are skipped; changed files become new tests
// so that existing submissions keep grading against what they answered.
func importTests(db *store.Store, reg *band.Registry, paths []string) (int, error) {
	imported := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return imported, fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return imported, fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("test file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("test file changed since last import, importing as a new test", "path", path)
		}

		doc, err := content.Parse(data)
		if err != nil {
			return imported, fmt.Errorf("parse %s: %w", path, err)
		}
		if doc.Component != "" {
			if _, ok := reg.Table(doc.Component); !ok {
				return imported, fmt.Errorf("%s: component %q: %w", path, doc.Component, band.ErrUnknownComponent)
			}
		}
		name := doc.Name
		if name == "" {
			name = path
		}

		res := numbering.Number(doc.Sections)
		logDiagnostics(path, res.Diagnostics)

		id, err := db.InsertTest(model.Test{Name: name, Component: doc.Component, Content: data})
		if err != nil {
			return imported, fmt.Errorf("insert test from %s: %w", path, err)
		}
		if err := db.SetImportedFileHash(path, hash); err != nil {
			return imported, fmt.Errorf("record import for %s: %w", path, err)
		}
		imported++
		slog.Info("imported test", "path", path, "test_id", id, "questions", res.Total.TotalQuestions)
	}
	return imported, nil
}

func logDiagnostics(path string, d numbering.Diagnostics) {
	if d.Empty() {
		return
	}
	for _, p := range d.Unidentified {
		slog.Warn("question has no identity", "path", path, "section", p.Section+1, "group", p.Group+1, "question", p.Question+1)
	}
	for _, c := range d.Collisions {
		slog.Warn("question identities collide", "path", path, "value", c.Value, "first", c.First.Raw, "second", c.Second.Raw)
	}
	for _, t := range d.UnsupportedTypes {
		slog.Warn("unsupported question type", "path", path, "type", t)
	}
	if len(d.Renumbered) > 0 {
		slog.Info("explicit question numbers replaced", "path", path, "count", len(d.Renumbered))
	}
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func runNumber(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	doc, err := content.LoadFile(args[0])
	if err != nil {
		return err
	}
	res := numbering.Number(doc.Sections)
	out := cmd.OutOrStdout()

	if v.GetBool("json") {
		return writeIndentedJSON(out, res)
	}

	for _, st := range res.Stats {
		fmt.Fprintf(out, "Section %d: %s [%s] questions %s (%d)\n",
			st.SectionNumber, st.Title, st.Difficulty, st.QuestionRange, st.QuestionCount)
		for _, g := range st.Groups {
			fmt.Fprintf(out, "  Group %d: %s questions %s\n", g.GroupNumber, g.Type, g.QuestionRange)
		}
	}
	fmt.Fprintf(out, "Total: %d questions, %.2f per section\n",
		res.Total.TotalQuestions, res.Total.AverageQuestionsPerSection)
	logDiagnostics(args[0], res.Diagnostics)
	return nil
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	grader, err := newGrader(v)
	if err != nil {
		return err
	}

	doc, err := content.LoadFile(v.GetString("content"))
	if err != nil {
		return err
	}
	var answers model.Submission
	if err := readJSONFile(v.GetString("answers"), &answers); err != nil {
		return err
	}
	var seed map[int]model.ManualGrade
	if path := v.GetString("overrides"); path != "" {
		if err := readJSONFile(path, &seed); err != nil {
			return err
		}
	}

	numbered := numbering.Number(doc.Sections)
	logDiagnostics(v.GetString("content"), numbered.Diagnostics)

	overrides := grading.NewOverrides(nil)
	numbers := make([]int, 0, len(seed))
	for n := range seed {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	sess := grading.NewSession(numbered, answers, overrides, grader.Matcher)
	for _, n := range numbers {
		if err := sess.SetOverride(n, seed[n]); err != nil {
			return fmt.Errorf("apply overrides: %w", err)
		}
	}

	component := doc.Component
	if component == "" {
		component = grader.DefaultComponent
	}
	rep, err := sess.Report(component, grader.Registry)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		return writeIndentedJSON(out, rep)
	}
	for _, q := range rep.Questions {
		mark := ""
		if q.Override != model.GradeAuto {
			mark = " (manual)"
		}
		fmt.Fprintf(out, "%3d  %-10s  %-20q  %s%s\n", q.Number, q.Final, q.Candidate.String(), q.Type, mark)
	}
	t := rep.Total
	fmt.Fprintf(out, "\nCorrect %d / %d (%d%%), incorrect %d, unanswered %d, manually graded %d\n",
		t.Correct, t.Total, t.Percentage, t.Incorrect, t.Unanswered, t.ManuallyGraded)
	if component != "" {
		fmt.Fprintf(out, "Band (%s): %s\n", component, bandText(rep.Band))
	}
	return nil
}

func bandText(b model.Band) string {
	if !b.OK {
		return "none"
	}
	return b.String()
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	format, err := report.ParseFormat(v.GetString("format"))
	if err != nil {
		return err
	}
	grader, err := newGrader(v)
	if err != nil {
		return err
	}
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	bundles, err := db.ExportBundles()
	if err != nil {
		return fmt.Errorf("load submissions: %w", err)
	}
	results, err := grader.Build(bundles)
	if err != nil {
		return fmt.Errorf("grade submissions: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))
	if err := report.Write(ctx, w, format, results); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("exported submissions", "count", len(results), "format", format, "output", outPath)
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
