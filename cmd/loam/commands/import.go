package commands

import (
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/loamdb/loam/config"
	"github.com/loamdb/loam/errors"
	"github.com/loamdb/loam/importer"
	"github.com/loamdb/loam/input"
	"github.com/loamdb/loam/store"
)

// ImportCmd represents the import command
var ImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Build a new store from delimited input files",
	Long: `Build a new store from delimited text input files.

Input files are given as groups. Each --nodes argument names an optional
label set and a comma-separated file-set sharing one header; each
--relationships argument names a default relationship type the same way.
Repeating a label set or type name adds further file-sets to that group.

The import is all-or-nothing within the configured bad-entry tolerance.
A failed run leaves the target directory in an unusable state.

Examples:
  loam import --into ./graph --nodes Person=people.csv
  loam import --into ./graph \
      --nodes Person=people-header.csv,people-1.csv,people-2.csv \
      --nodes City:Place=cities.csv \
      --relationships KNOWS=knows.csv \
      --skip-bad-relationships --bad-tolerance 500
  loam import --into ./graph --nodes people.csv --id-type sequence`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd)
	},
}

func init() {
	flags := ImportCmd.Flags()

	flags.String("into", "", "Target directory for the new store (required)")
	flags.StringArray("nodes", nil, "Node file group: [label1:label2=]file1,file2,... (repeatable)")
	flags.StringArray("relationships", nil, "Relationship file group: [TYPE=]file1,file2,... (repeatable)")
	flags.String("id-type", "string", "How input ids are interpreted: string or sequence")

	flags.String("delimiter", ",", "Field delimiter (single character, or TAB)")
	flags.String("array-delimiter", ";", "Delimiter within array values such as labels")
	flags.String("quote", `"`, "Quote character")
	flags.String("input-encoding", "utf-8", "Character set of the input files")
	flags.Bool("multiline-fields", false, "Allow quoted fields to span multiple lines")
	flags.Bool("normalize-types", false, "Normalize property values that parse as numbers or booleans")

	flags.Bool("skip-bad-relationships", false, "Tolerate relationships missing mandatory data")
	flags.Bool("skip-duplicate-nodes", false, "Tolerate nodes whose id was already imported; the first occurrence wins")
	flags.Bool("ignore-extra-columns", false, "Tolerate rows carrying more values than the header declares")
	flags.Int64("bad-tolerance", config.DefaultBadTolerance, "Number of bad entries tolerated before the import aborts (-1 for unlimited)")
	flags.Bool("skip-bad-entries-logging", false, "Count bad entries without writing them to the report")
	flags.String("report-file", config.DefaultReportFile, "Where the bad-entry report is written")

	flags.String("max-memory", config.DefaultMaxMemory, "Memory budget, as a percentage of machine memory (90%) or a size (2G)")
	flags.Int("processors", 0, "Number of concurrent store writers (0 = all available)")
	flags.Bool("high-io", false, "Assume a fast random-IO device and use larger write batches")
	flags.String("config", "", "Path to a loam configuration file (TOML)")

	ImportCmd.MarkFlagRequired("into")
	ImportCmd.MarkFlagRequired("nodes")
}

func runImport(cmd *cobra.Command) error {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	nodeGroups, relGroups, err := resolveGroups(flags)
	if err != nil {
		return err
	}

	idTypeArg, _ := flags.GetString("id-type")
	idType, ok := input.ParseIDType(idTypeArg)
	if !ok {
		return errors.NewConfigurationError("unrecognized id type %q, expected string or sequence", idTypeArg)
	}

	reader, err := readerOptions(flags)
	if err != nil {
		return err
	}

	policy, reportFile, err := tolerancePolicy(flags, cfg)
	if err != nil {
		return err
	}

	builderCfg, err := builderConfig(flags, cfg)
	if err != nil {
		return err
	}

	target, _ := flags.GetString("into")
	verbose, _ := flags.GetBool("verbose")

	imp, err := importer.New(importer.Config{
		TargetDir:          target,
		Database:           *cfg,
		IDType:             idType,
		Reader:             reader,
		Policy:             policy,
		ReportFile:         reportFile,
		NodeGroups:         nodeGroups,
		RelationshipGroups: relGroups,
		Builder:            builderCfg,
		Verbose:            verbose,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return imp.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// resolveGroups parses the repeated --nodes and --relationships arguments and
// folds them into file groups
func resolveGroups(flags *pflag.FlagSet) ([]input.Group, []input.Group, error) {
	nodeArgs, _ := flags.GetStringArray("nodes")
	relArgs, _ := flags.GetStringArray("relationships")

	nodeSpecs := make([]input.NodeGroupSpec, 0, len(nodeArgs))
	for _, arg := range nodeArgs {
		key, files, err := splitGroupArg(arg)
		if err != nil {
			return nil, nil, err
		}
		nodeSpecs = append(nodeSpecs, input.NodeGroupSpec{Labels: splitLabels(key), Files: files})
	}

	relSpecs := make([]input.RelationshipGroupSpec, 0, len(relArgs))
	for _, arg := range relArgs {
		key, files, err := splitGroupArg(arg)
		if err != nil {
			return nil, nil, err
		}
		relSpecs = append(relSpecs, input.RelationshipGroupSpec{DefaultType: key, Files: files})
	}

	nodeGroups, err := input.ResolveNodeGroups(nodeSpecs)
	if err != nil {
		return nil, nil, err
	}
	relGroups, err := input.ResolveRelationshipGroups(relSpecs)
	if err != nil {
		return nil, nil, err
	}
	return nodeGroups, relGroups, nil
}

// splitGroupArg splits one group argument into its grouping key and file list.
// The key part before '=' is optional.
func splitGroupArg(arg string) (string, []string, error) {
	key := ""
	fileList := arg
	if idx := strings.IndexByte(arg, '='); idx >= 0 {
		key = strings.TrimSpace(arg[:idx])
		fileList = arg[idx+1:]
	}

	var files []string
	for _, f := range strings.Split(fileList, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return "", nil, errors.NewConfigurationError("file group %q names no files", arg)
	}
	return key, files, nil
}

func splitLabels(key string) []string {
	var labels []string
	for _, l := range strings.Split(key, ":") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

func readerOptions(flags *pflag.FlagSet) (input.ReaderOptions, error) {
	delimiter, err := parseSeparator(flags, "delimiter")
	if err != nil {
		return input.ReaderOptions{}, err
	}
	arrayDelimiter, err := parseSeparator(flags, "array-delimiter")
	if err != nil {
		return input.ReaderOptions{}, err
	}
	quote, err := parseSeparator(flags, "quote")
	if err != nil {
		return input.ReaderOptions{}, err
	}

	encoding, _ := flags.GetString("input-encoding")
	multiline, _ := flags.GetBool("multiline-fields")

	return input.ReaderOptions{
		Delimiter:       delimiter,
		ArrayDelimiter:  arrayDelimiter,
		Quote:           quote,
		Encoding:        encoding,
		MultilineFields: multiline,
	}, nil
}

// parseSeparator reads a single-character flag value; TAB names the tab
// character, which is awkward to pass literally on a command line
func parseSeparator(flags *pflag.FlagSet, name string) (rune, error) {
	value, _ := flags.GetString(name)
	if value == "TAB" {
		return '\t', nil
	}
	runes := []rune(value)
	if len(runes) != 1 {
		return 0, errors.NewConfigurationError("--%s must be a single character, got %q", name, value)
	}
	return runes[0], nil
}

func tolerancePolicy(flags *pflag.FlagSet, cfg *config.Config) (input.TolerancePolicy, string, error) {
	skipBadRels, _ := flags.GetBool("skip-bad-relationships")
	skipDupNodes, _ := flags.GetBool("skip-duplicate-nodes")
	ignoreExtra, _ := flags.GetBool("ignore-extra-columns")
	skipLogging, _ := flags.GetBool("skip-bad-entries-logging")

	tolerance := cfg.Import.BadTolerance
	if flags.Changed("bad-tolerance") {
		tolerance, _ = flags.GetInt64("bad-tolerance")
	}
	if tolerance < input.UnlimitedTolerance {
		return input.TolerancePolicy{}, "", errors.NewConfigurationError("bad tolerance must be -1 or greater, got %d", tolerance)
	}

	reportFile := cfg.Import.ReportFile
	if flags.Changed("report-file") {
		reportFile, _ = flags.GetString("report-file")
	}

	return input.TolerancePolicy{
		SkipBadRelationships: skipBadRels,
		SkipDuplicateNodes:   skipDupNodes,
		IgnoreExtraColumns:   ignoreExtra,
		Tolerance:            tolerance,
		LoggingEnabled:       !skipLogging,
	}, reportFile, nil
}

func builderConfig(flags *pflag.FlagSet, cfg *config.Config) (store.Config, error) {
	maxMemoryArg := cfg.Import.MaxMemory
	if flags.Changed("max-memory") {
		maxMemoryArg, _ = flags.GetString("max-memory")
	}
	machine, err := mem.VirtualMemory()
	if err != nil {
		return store.Config{}, errors.Wrap(err, "failed to inspect machine memory")
	}
	maxMemory, err := config.ParseMaxMemory(maxMemoryArg, machine.Total)
	if err != nil {
		return store.Config{}, err
	}

	processors := cfg.Import.Workers
	if flags.Changed("processors") {
		processors, _ = flags.GetInt("processors")
	}
	if processors <= 0 {
		processors = runtime.NumCPU()
	}

	highIO := cfg.Import.HighIO
	if flags.Changed("high-io") {
		highIO, _ = flags.GetBool("high-io")
	}

	normalize, _ := flags.GetBool("normalize-types")

	return store.Config{
		Processors:      processors,
		MaxMemory:       maxMemory,
		HighIO:          highIO,
		RecordFormat:    cfg.Database.RecordFormat,
		TimezoneDefault: cfg.Database.TimezoneDefault,
		NormalizeTypes:  normalize,
	}, nil
}
