// Package histogram implements the log-exponential latency histogram:
// a fixed-size bucket layout that gives roughly constant
// relative resolution across nine decades of latency without needing to
// know the distribution's shape in advance. Operations in the workload
// engine add one sample per measured call; Dump writes the counts added
// since the previous dump in the histogram text format so a
// long run's percentiles-over-time can be reconstructed without
// replaying every individual response time.
package histogram

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

const fileVersion = "1.0"

// Histogram accumulates latency samples into buckets of geometrically
// widening width, grouped so groups 0 and 1 both have a per-bucket width
// of one unit and every group after that doubles the width of the one
// before it.
type Histogram struct {
	bucketBits       int
	bucketGroups     int
	buckersPerGroup  int
	smallestInterval time.Duration

	counts     [][]int64
	lastDumped [][]int64
	total      int64
}

// Options configures a new Histogram. Zero values fall back to the
// defaults (bucket_bits=6, bucket_groups=29, smallest_interval=1µs).
type Options struct {
	BucketBits       int
	BucketGroups     int
	SmallestInterval time.Duration
}

// New constructs a Histogram with all buckets zeroed.
func New(opts Options) *Histogram {
	bits := opts.BucketBits
	if bits <= 0 {
		bits = 6
	}
	groups := opts.BucketGroups
	if groups <= 0 {
		groups = 29
	}
	interval := opts.SmallestInterval
	if interval <= 0 {
		interval = time.Microsecond
	}

	perGroup := 1 << uint(bits)
	h := &Histogram{
		bucketBits:       bits,
		bucketGroups:     groups,
		buckersPerGroup:  perGroup,
		smallestInterval: interval,
		counts:           make([][]int64, groups),
		lastDumped:       make([][]int64, groups),
	}
	for g := range h.counts {
		h.counts[g] = make([]int64, perGroup)
		h.lastDumped[g] = make([]int64, perGroup)
	}
	return h
}

// groupWidth returns the width, in smallest_interval units, of group g.
// Groups 0 and 1 are 1 unit wide per bucket (buckersPerGroup units
// total); from group 2 on, each group doubles the previous group's
// per-bucket width (group g is 2^(g-1) units per bucket).
func (h *Histogram) groupWidth(g int) int64 {
	if g <= 0 {
		return 1
	}
	return int64(1) << uint(g-1)
}

// groupStart returns the smallest_interval-unit offset where group g begins.
func (h *Histogram) groupStart(g int) int64 {
	if g <= 0 {
		return 0
	}
	// group 0 spans [0, buckersPerGroup); group 1 starts there and every
	// later group doubles the prior group's total span.
	start := int64(h.buckersPerGroup)
	for k := 1; k < g; k++ {
		start += h.groupWidth(k) * int64(h.buckersPerGroup)
	}
	return start
}

// locate maps an elapsed duration to its (group, bucket) coordinates.
// units may legitimately be 0 (a sample faster than smallest_interval);
// log2 is only evaluated once we know units > 0, since log2(0) is -Inf
// and would otherwise be truncated into an undefined int conversion.
func (h *Histogram) locate(d time.Duration) (int, int) {
	units := float64(d) / float64(h.smallestInterval)
	if units < 0 {
		units = 0
	}

	group := 0
	if units > 0 {
		group = int(math.Floor(math.Log2(units))) - h.bucketBits + 1
		if group < 0 {
			group = 0
		}
	}
	if group > h.bucketGroups-1 {
		group = h.bucketGroups - 1
	}

	start := float64(h.groupStart(group))
	width := float64(h.groupWidth(group))
	bucket := int(math.Floor((units - start) / width))
	if bucket < 0 {
		bucket = 0
	}
	if bucket > h.buckersPerGroup-1 {
		bucket = h.buckersPerGroup - 1
	}
	return group, bucket
}

// Add records one latency sample.
func (h *Histogram) Add(d time.Duration) {
	g, b := h.locate(d)
	h.counts[g][b]++
	h.total++
}

// Total returns the cumulative sample count since construction.
func (h *Histogram) Total() int64 {
	return h.total
}

// Dump writes the delta since the last Dump (or since construction,
// for the first call) in the histogram text format, then snapshots
// current totals as the new baseline.
func (h *Histogram) Dump(w io.Writer, threadID string, now time.Time) error {
	bw := bufio.NewWriter(w)

	deltaTotal := int64(0)
	deltas := make([][]int64, h.bucketGroups)
	for g := 0; g < h.bucketGroups; g++ {
		deltas[g] = make([]int64, h.buckersPerGroup)
		for b := 0; b < h.buckersPerGroup; b++ {
			d := h.counts[g][b] - h.lastDumped[g][b]
			deltas[g][b] = d
			deltaTotal += d
		}
	}

	fmt.Fprintf(bw, "latency-histogram-version: %s\n", fileVersion)
	fmt.Fprintf(bw, "thread: %s\n", threadID)
	fmt.Fprintf(bw, "time-sec: %d\n", now.Unix())
	fmt.Fprintf(bw, "bucket-bits: %d\n", h.bucketBits)
	fmt.Fprintf(bw, "bucket-groups: %d\n", h.bucketGroups)
	fmt.Fprintf(bw, "smallest-interval: %g\n", h.smallestInterval.Seconds())
	fmt.Fprintf(bw, "total-samples: %d\n", deltaTotal)
	for g := 0; g < h.bucketGroups; g++ {
		parts := make([]string, h.buckersPerGroup)
		for b, c := range deltas[g] {
			parts[b] = strconv.FormatInt(c, 10)
		}
		fmt.Fprintf(bw, "group-%d: %s\n", g, strings.Join(parts, ","))
	}
	fmt.Fprintln(bw)

	if err := bw.Flush(); err != nil {
		return err
	}

	for g := 0; g < h.bucketGroups; g++ {
		copy(h.lastDumped[g], h.counts[g])
	}
	return nil
}

// Record is one decoded dump-interval from the histogram text format.
type Record struct {
	ThreadID         string
	TimeSec          int64
	BucketBits       int
	BucketGroups     int
	SmallestInterval float64
	TotalSamples     int64
	Groups           [][]int64
}

// Load decodes every concatenated record in r and verifies that each
// record's declared total-samples equals the sum of its bucket counts.
func Load(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []Record
	var cur *Record
	var sum int64

	flush := func() error {
		if cur == nil {
			return nil
		}
		if sum != cur.TotalSamples {
			return fmt.Errorf("histogram: record for thread %q declares total-samples=%d but buckets sum to %d",
				cur.ThreadID, cur.TotalSamples, sum)
		}
		records = append(records, *cur)
		cur = nil
		sum = 0
		return nil
	}

	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("histogram: malformed line %q", line)
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		if key == "latency-histogram-version" {
			if cur != nil {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			cur = &Record{}
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("histogram: field %q outside a record", key)
		}

		switch {
		case key == "thread":
			cur.ThreadID = val
		case key == "time-sec":
			cur.TimeSec, _ = strconv.ParseInt(val, 10, 64)
		case key == "bucket-bits":
			cur.BucketBits, _ = strconv.Atoi(val)
		case key == "bucket-groups":
			cur.BucketGroups, _ = strconv.Atoi(val)
		case key == "smallest-interval":
			cur.SmallestInterval, _ = strconv.ParseFloat(val, 64)
		case key == "total-samples":
			cur.TotalSamples, _ = strconv.ParseInt(val, 10, 64)
		case strings.HasPrefix(key, "group-"):
			fields := strings.Split(val, ",")
			counts := make([]int64, len(fields))
			for i, f := range fields {
				c, _ := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
				counts[i] = c
				sum += c
			}
			cur.Groups = append(cur.Groups, counts)
		default:
			return nil, fmt.Errorf("histogram: unknown field %q", key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return records, nil
}
