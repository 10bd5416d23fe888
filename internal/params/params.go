// Package params defines the test-parameter data model, CLI flag
// registration, and a YAML overlay decoder. A Params value is built
// once by the coordinator, serialized into the shared network
// directory, and treated as read-only by every worker that loads it
// back: write once, read many, never mutate.
package params

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Distribution selects how per-file size varies across a run.
type Distribution string

const (
	DistributionFixed       Distribution = "fixed"
	DistributionExponential Distribution = "exponential"
)

// Operation is one of the 20 workload operation types.
type Operation string

const (
	OpCreate        Operation = "create"
	OpAppend        Operation = "append"
	OpOverwrite     Operation = "overwrite"
	OpRead          Operation = "read"
	OpReaddir       Operation = "readdir"
	OpLsL           Operation = "ls-l"
	OpStat          Operation = "stat"
	OpChmod         Operation = "chmod"
	OpSymlink       Operation = "symlink"
	OpDelete        Operation = "delete"
	OpDeleteRenamed Operation = "delete-renamed"
	OpRename        Operation = "rename"
	OpMkdir         Operation = "mkdir"
	OpRmdir         Operation = "rmdir"
	OpSetxattr      Operation = "setxattr"
	OpGetxattr      Operation = "getxattr"
	OpSwiftPut      Operation = "swift-put"
	OpSwiftGet      Operation = "swift-get"
	OpAwaitCreate   Operation = "await-create"
	OpCleanup       Operation = "cleanup"
)

// AllOperations enumerates the full operation set; Validate rejects any
// operation not in it.
var AllOperations = []Operation{
	OpCreate, OpAppend, OpOverwrite, OpRead, OpReaddir, OpLsL,
	OpStat, OpChmod, OpSymlink, OpDelete, OpDeleteRenamed, OpRename,
	OpMkdir, OpRmdir, OpSetxattr, OpGetxattr, OpSwiftPut, OpSwiftGet,
	OpAwaitCreate, OpCleanup,
}

func (o Operation) valid() bool {
	for _, v := range AllOperations {
		if v == o {
			return true
		}
	}
	return false
}

// Params is the full, immutable-after-construction test parameter set
//, shared by coordinator and workers alike.
// Worker-only identity fields (WorkerID, HostID) are filled in per process
// after the snapshot is read back; everything else is fixed at creation.
type Params struct {
	// Identity, filled per worker after snapshot load.
	WorkerID   string `yaml:"-" json:"worker_id,omitempty"`
	HostID     string `yaml:"-" json:"host_id,omitempty"`
	TotalHosts int    `yaml:"-" json:"total_hosts,omitempty"`
	IsSlave    bool   `yaml:"-" json:"is_slave,omitempty"`

	Operation Operation `yaml:"operation" json:"operation"`

	Iterations         int          `yaml:"iterations" json:"iterations"`
	FilesPerDir        int          `yaml:"files-per-dir" json:"files_per_dir"`
	DirsPerDir         int          `yaml:"dirs-per-dir" json:"dirs_per_dir"`
	TotalSizeKB        int          `yaml:"total-size-kb" json:"total_size_kb"`
	RecordSizeKB       int          `yaml:"record-size-kb" json:"record_size_kb"`
	SizeDistribution   Distribution `yaml:"size-distribution" json:"size_distribution"`
	XattrSize          int          `yaml:"xattr-size" json:"xattr_size"`
	XattrCount         int          `yaml:"xattr-count" json:"xattr_count"`
	Fsync              bool         `yaml:"fsync" json:"fsync"`
	Stonewall          bool         `yaml:"stonewall" json:"stonewall"`
	FinishAllRequests  bool         `yaml:"finish-all-requests" json:"finish_all_requests"`
	VerifyRead         bool         `yaml:"verify-read" json:"verify_read"`
	Incompressible     bool         `yaml:"incompressible" json:"incompressible"`
	HashToDir          bool         `yaml:"hash-to-dir" json:"hash_to_dir"`
	IsSharedDir        bool         `yaml:"is-shared-dir" json:"is_shared_dir"`
	RecordCtimeSize    bool         `yaml:"record-ctime-size" json:"record_ctime_size"`
	MeasureRespTimes   bool         `yaml:"measure-response-times" json:"measure_response_times"`
	DirsOnDemand       bool         `yaml:"dirs-on-demand" json:"dirs_on_demand"`
	Prefix             string       `yaml:"prefix" json:"prefix"`
	Suffix             string       `yaml:"suffix" json:"suffix"`
	PauseBetweenFilesU int          `yaml:"pause-between-files-us" json:"pause_between_files_us"`

	TopDirs     []string `yaml:"top-dirs" json:"top_dirs"`
	NetworkDir  string   `yaml:"network-dir" json:"network_dir"`

	HostSet              []string `yaml:"host-set" json:"host_set,omitempty"`
	ThreadCount          int      `yaml:"thread-count" json:"thread_count"`
	PermuteHostDirs      bool     `yaml:"permute-host-dirs" json:"permute_host_dirs"`
	LaunchByDaemon       bool     `yaml:"launch-by-daemon" json:"launch_by_daemon"`
	StartupTimeoutSec    float64  `yaml:"startup-timeout-sec" json:"startup_timeout_sec,omitempty"`
	HostStartupTimeout   float64  `yaml:"host-startup-timeout-sec" json:"host_startup_timeout_sec,omitempty"`
	MinDirectoriesPerSec float64  `yaml:"min-directories-per-sec" json:"min_directories_per_sec"`
	OutputJSON           string   `yaml:"output-json" json:"output_json,omitempty"`

	BucketBits       int     `yaml:"bucket-bits" json:"bucket_bits"`
	BucketGroups     int     `yaml:"bucket-groups" json:"bucket_groups"`
	SmallestIntervalU float64 `yaml:"smallest-interval-us" json:"smallest_interval_us"`
}

// Defaults returns the built-in defaults.
func Defaults() Params {
	return Params{
		Operation:            OpCreate,
		Iterations:           1000,
		FilesPerDir:          100,
		DirsPerDir:           10,
		TotalSizeKB:          64,
		RecordSizeKB:         0,
		SizeDistribution:     DistributionFixed,
		XattrSize:            0,
		XattrCount:           0,
		Fsync:                false,
		Stonewall:            true,
		FinishAllRequests:    false,
		VerifyRead:           true,
		Incompressible:       false,
		HashToDir:            false,
		IsSharedDir:          false,
		RecordCtimeSize:      false,
		MeasureRespTimes:     false,
		DirsOnDemand:         false,
		Prefix:               "p",
		Suffix:               "",
		PauseBetweenFilesU:   0,
		TopDirs:              []string{"/tmp/smallfile"},
		NetworkDir:           "",
		ThreadCount:          1,
		PermuteHostDirs:      false,
		LaunchByDaemon:       false,
		MinDirectoriesPerSec: 50,
		BucketBits:           6,
		BucketGroups:         29,
		SmallestIntervalU:    1,
	}
}

// SrcDirs returns {top}/file_srcdir for every top dir, in round-robin order.
func (p *Params) SrcDirs() []string { return joinAll(p.TopDirs, "file_srcdir") }

// DestDirs returns {top}/file_dstdir for every top dir.
func (p *Params) DestDirs() []string { return joinAll(p.TopDirs, "file_dstdir") }

func joinAll(tops []string, leaf string) []string {
	out := make([]string, len(tops))
	for i, t := range tops {
		out[i] = strings.TrimRight(t, "/") + "/" + leaf
	}
	return out
}

// ResolvedNetworkDir returns NetworkDir if set, else {top[0]}/network_shared.
func (p *Params) ResolvedNetworkDir() string {
	if p.NetworkDir != "" {
		return p.NetworkDir
	}
	if len(p.TopDirs) == 0 {
		return "network_shared"
	}
	return strings.TrimRight(p.TopDirs[0], "/") + "/network_shared"
}

// FilesBetweenChecks implements the stonewall poll-interval formula:
// max(10, 100 - total_size_kb/100) when total_size_kb > 0, else 20.
func (p *Params) FilesBetweenChecks() int {
	if p.TotalSizeKB <= 0 {
		return 20
	}
	v := 100 - p.TotalSizeKB/100
	if v < 10 {
		v = 10
	}
	return v
}

// Validate checks cross-field invariants, surfaced immediately at
// parse time as parameter errors.
func (p *Params) Validate() error {
	if !p.Operation.valid() {
		return fmt.Errorf("params: unknown operation %q", p.Operation)
	}
	if p.RecordSizeKB > 0 && p.TotalSizeKB > 0 && p.RecordSizeKB > p.TotalSizeKB {
		return fmt.Errorf("params: record-size-kb (%d) must be <= total-size-kb (%d) unless total-size-kb is 0",
			p.RecordSizeKB, p.TotalSizeKB)
	}
	if p.Iterations <= 0 {
		return fmt.Errorf("params: iterations must be positive, got %d", p.Iterations)
	}
	if p.FilesPerDir <= 0 {
		return fmt.Errorf("params: files-per-dir must be positive, got %d", p.FilesPerDir)
	}
	if p.DirsPerDir <= 0 {
		return fmt.Errorf("params: dirs-per-dir must be positive, got %d", p.DirsPerDir)
	}
	if len(p.TopDirs) == 0 {
		return fmt.Errorf("params: at least one top-dir is required")
	}
	if p.SizeDistribution != DistributionFixed && p.SizeDistribution != DistributionExponential {
		return fmt.Errorf("params: unknown size-distribution %q", p.SizeDistribution)
	}
	if p.HashToDir && (p.Operation == OpReaddir || p.Operation == OpLsL) {
		return fmt.Errorf("params: %s is not valid with hash-to-dir", p.Operation)
	}
	return nil
}

// RegisterFlags binds every CLI flag to cmd's flag set, defaulting to
// d. Boolean flags use pflag's native bool parsing, which accepts only
// Go's strconv.ParseBool vocabulary (1/0, t/f, true/false in its case
// forms); the y|yes|n|no forms are rejected on the command line.
// ParseBoolString accepts those forms but is not used by flag parsing.
func RegisterFlags(cmd *cobra.Command, d *Params) {
	f := cmd.Flags()
	f.StringVar((*string)(&d.Operation), "operation", string(d.Operation), "workload operation to run")
	f.IntVar(&d.Iterations, "iterations", d.Iterations, "files per worker")
	f.IntVar(&d.FilesPerDir, "files-per-dir", d.FilesPerDir, "files per directory")
	f.IntVar(&d.DirsPerDir, "dirs-per-dir", d.DirsPerDir, "subdirectories per directory")
	f.IntVar(&d.TotalSizeKB, "total-size-kb", d.TotalSizeKB, "target file size in KB")
	f.IntVar(&d.RecordSizeKB, "record-size-kb", d.RecordSizeKB, "I/O chunk size in KB (0 = use total-size-kb)")
	f.StringVar((*string)(&d.SizeDistribution), "size-distribution", string(d.SizeDistribution), "fixed|exponential")
	f.IntVar(&d.XattrSize, "xattr-size", d.XattrSize, "bytes per extended attribute")
	f.IntVar(&d.XattrCount, "xattr-count", d.XattrCount, "extended attributes per file")
	f.BoolVar(&d.Fsync, "fsync", d.Fsync, "fsync after writes")
	f.BoolVar(&d.Stonewall, "stonewall", d.Stonewall, "stop measuring once the first worker finishes its share")
	f.BoolVar(&d.FinishAllRequests, "finish-all-requests", d.FinishAllRequests, "keep working past stonewall without counting it")
	f.BoolVar(&d.VerifyRead, "verify-read", d.VerifyRead, "verify read content against the generator buffer")
	f.BoolVar(&d.Incompressible, "incompressible", d.Incompressible, "use a non-repeating fill for the write buffer")
	f.BoolVar(&d.HashToDir, "hash-to-dir", d.HashToDir, "place files with a pseudo-random hash instead of sequentially")
	f.BoolVar(&d.IsSharedDir, "is-shared-dir", d.IsSharedDir, "all workers share one subtree")
	f.BoolVar(&d.RecordCtimeSize, "record-ctime-size", d.RecordCtimeSize, "record ctime+size xattr for await-create")
	f.BoolVar(&d.MeasureRespTimes, "measure-response-times", d.MeasureRespTimes, "capture a per-operation latency histogram/csv")
	f.BoolVar(&d.DirsOnDemand, "dirs-on-demand", d.DirsOnDemand, "create missing directories lazily on create")
	f.StringVar(&d.Prefix, "prefix", d.Prefix, "filename prefix")
	f.StringVar(&d.Suffix, "suffix", d.Suffix, "filename suffix")
	f.IntVar(&d.PauseBetweenFilesU, "pause-between-files-us", d.PauseBetweenFilesU, "microsecond pause between files")
	f.StringSliceVar(&d.TopDirs, "top-dirs", d.TopDirs, "mount points to round-robin across")
	f.StringVar(&d.NetworkDir, "network-dir", d.NetworkDir, "shared coordination directory (default {top[0]}/network_shared)")
	f.StringSliceVar(&d.HostSet, "host-set", d.HostSet, "remote hosts to run workers on")
	f.IntVar(&d.ThreadCount, "thread-count", d.ThreadCount, "worker threads per host")
	f.BoolVar(&d.PermuteHostDirs, "permute-host-dirs", d.PermuteHostDirs, "stagger each host's top-dir rotation start")
	f.BoolVar(&d.LaunchByDaemon, "launch-by-daemon", d.LaunchByDaemon, "use the daemon drop-file launch strategy instead of SSH")
	f.Float64Var(&d.MinDirectoriesPerSec, "min-directories-per-sec", d.MinDirectoriesPerSec, "used to size the startup timeout")
	f.StringVar(&d.OutputJSON, "output-json", d.OutputJSON, "path to write a JSON results artifact")
	f.IntVar(&d.BucketBits, "bucket-bits", d.BucketBits, "latency histogram bucket-bits")
	f.IntVar(&d.BucketGroups, "bucket-groups", d.BucketGroups, "latency histogram bucket-groups")
	f.Float64Var(&d.SmallestIntervalU, "smallest-interval-us", d.SmallestIntervalU, "latency histogram smallest interval, in microseconds")
}

// LoadYAML reads an overlay file and applies its fields onto base.
// YAML values override the built-in defaults; the YAML file cannot
// refer to another YAML file (there is no include/extends key).
func LoadYAML(path string, base *Params) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("params: reading YAML overlay: %w", err)
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return fmt.Errorf("params: parsing YAML overlay: %w", err)
	}
	return nil
}

// ParseBoolString accepts the case-insensitive y|yes|t|true|n|no|f|false
// vocabulary for boolean CLI values, beyond what pflag's native
// BoolVar understands.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes", "t", "true":
		return true, nil
	case "n", "no", "f", "false":
		return false, nil
	default:
		return false, fmt.Errorf("params: invalid boolean value %q", s)
	}
}
