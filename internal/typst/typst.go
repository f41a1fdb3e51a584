package typst

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/netbill/netbill/internal/config"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/types"
)

type Compiler interface {
	Compile(ctx context.Context, opts CompileOpts) (string, error)
	CompileToBytes(ctx context.Context, opts CompileOpts) ([]byte, error)
	CompileTemplate(ctx context.Context, templateName string, data []byte, opts ...CompileOptsBuilder) ([]byte, error)
	CleanupGeneratedFiles(files ...string)
}

// compiler shells out to the typst binary
type compiler struct {
	logger      *logger.Logger
	binaryPath  string
	fontDir     string
	templateDir string
	outputDir   string
}

// CompileOpts contains options for compiling a Typst document
type CompileOpts struct {
	// Input file path
	InputFile string
	// Output file name relative to the output dir. A unique name is used when empty.
	OutputFile string
	// Font paths to include
	FontDirs []string
	// Additional command-line arguments
	ExtraArgs []string
}

type CompileOptsBuilder func(c *CompileOpts)

func WithOutputFile(outputFile string) CompileOptsBuilder {
	return func(c *CompileOpts) {
		c.OutputFile = outputFile
	}
}

func WithFontDirs(fontDirs ...string) CompileOptsBuilder {
	return func(c *CompileOpts) {
		c.FontDirs = fontDirs
	}
}

func WithExtraArgs(extraArgs ...string) CompileOptsBuilder {
	return func(c *CompileOpts) {
		c.ExtraArgs = append(c.ExtraArgs, extraArgs...)
	}
}

// NewCompiler creates a new Typst compiler
func NewCompiler(logger *logger.Logger, binaryPath, fontDir, templateDir, outputDir string) Compiler {
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	return &compiler{
		logger:      logger,
		binaryPath:  binaryPath,
		fontDir:     fontDir,
		templateDir: templateDir,
		outputDir:   outputDir,
	}
}

// NewCompilerFromConfig builds the compiler used for receipts. Intermediate files go to the OS temp dir.
func NewCompilerFromConfig(cfg *config.Configuration, logger *logger.Logger) Compiler {
	binary := cfg.Receipt.TypstBinary
	if binary == "" {
		binary = "typst"
	}
	return NewCompiler(logger, binary, cfg.Receipt.FontDir, cfg.Receipt.TemplateDir, os.TempDir())
}

// Compile compiles a Typst document to PDF and returns the output path
func (c *compiler) Compile(ctx context.Context, opts CompileOpts) (string, error) {
	name := opts.OutputFile
	if name == "" {
		name = fmt.Sprintf("typst-%s.pdf", types.GenerateUUID())
	}
	outputFile := filepath.Join(c.outputDir, name)

	var fontDirs []string
	if c.fontDir != "" {
		fontDirs = append(fontDirs, c.fontDir)
	}
	fontDirs = append(fontDirs, opts.FontDirs...)

	args := []string{"compile", "--root", "/"}
	for _, dir := range fontDirs {
		args = append(args, "--font-path", dir)
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, opts.InputFile, outputFile)

	cmd := exec.CommandContext(ctx, c.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		c.logger.Errorw("typst compilation failed",
			"input", opts.InputFile,
			"stderr", stderr.String(),
			"error", err,
		)
		return "", ierr.WithError(err).
			WithMessage("typst compilation failed").
			WithHint("typst error").
			WithReportableDetails(map[string]any{
				"stderr": stderr.String(),
			}).
			Mark(ierr.ErrSystem)
	}

	return outputFile, nil
}

// CompileToBytes compiles a Typst document and returns the PDF content as bytes
func (c *compiler) CompileToBytes(ctx context.Context, opts CompileOpts) ([]byte, error) {
	pdfPath, err := c.Compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer c.CleanupGeneratedFiles(pdfPath)

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to read compiled document").
			Mark(ierr.ErrSystem)
	}
	return data, nil
}

// CompileTemplate compiles a Typst template with the provided JSON data.
// The data is written to a file whose path is passed as the "path" input:
//
//	#let data = json(sys.inputs.path)
func (c *compiler) CompileTemplate(ctx context.Context, templateName string, data []byte, opts ...CompileOptsBuilder) ([]byte, error) {
	templatePath := filepath.Join(c.templateDir, templateName)
	if _, err := os.Stat(templatePath); err != nil {
		return nil, ierr.WithError(err).
			WithMessagef("template not found: %s", templatePath).
			WithHint("template error").
			Mark(ierr.ErrSystem)
	}

	jsonPath := filepath.Join(c.outputDir, fmt.Sprintf("typst-%s.json", types.GenerateUUID()))
	if err := os.WriteFile(jsonPath, data, 0o600); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to write template data").
			WithHint("template error").
			Mark(ierr.ErrSystem)
	}
	defer c.CleanupGeneratedFiles(jsonPath)

	compileOpts := CompileOpts{
		InputFile: templatePath,
		ExtraArgs: []string{"--input", fmt.Sprintf("path=%s", jsonPath)},
	}
	for _, opt := range opts {
		opt(&compileOpts)
	}

	return c.CompileToBytes(ctx, compileOpts)
}

// CleanupGeneratedFiles removes temporary files created during compilation
func (c *compiler) CleanupGeneratedFiles(files ...string) {
	for _, file := range files {
		if file == "" {
			continue
		}
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			c.logger.Warnw("failed to remove generated file", "file", file, "error", err)
		}
	}
}
