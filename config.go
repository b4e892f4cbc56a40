package yt_fetch

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/yt-fetch/generic"
)

// Mode selects between video downloads and audio-only extraction.
type Mode string

const (
	ModeVideo Mode = "mp4" // Video with audio (default).
	ModeAudio Mode = "mp3" // Audio only, transcoded to MP3.
)

var modes = generic.NewSet(ModeVideo, ModeAudio)

// Container is the preferred container for video mode.
type Container string

const (
	ContainerMP4 Container = "mp4" // Primary container: codec-constrained selection plus remux.
	ContainerMKV Container = "mkv"
)

var containers = generic.NewSet(ContainerMP4, ContainerMKV)

// Transport is the download transport used by the engine.
type Transport string

const (
	TransportNative Transport = "native" // The engine's built-in transport (default).
	TransportAria2c Transport = "aria2c" // External aria2c helper process.
)

var transports = generic.NewSet(TransportNative, TransportAria2c)

// Browser names a browser profile the engine can load cookies from.
type Browser string

var Browsers = generic.NewSet[Browser]("firefox", "chrome", "chromium", "brave", "edge", "vivaldi", "opera")

// ParseMode, ParseContainer and ParseBrowser validate user-supplied enum values.

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !modes.Contains(m) {
		return "", fmt.Errorf("invalid mode %q (use one of: %s)", s, strings.Join(generic.SortedStrings(modes), ", "))
	}
	return m, nil
}

func ParseContainer(s string) (Container, error) {
	c := Container(strings.ToLower(strings.TrimSpace(s)))
	if !containers.Contains(c) {
		return "", fmt.Errorf("invalid container %q (use one of: %s)", s, strings.Join(generic.SortedStrings(containers), ", "))
	}
	return c, nil
}

func ParseBrowser(s string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(s)))
	if !Browsers.Contains(b) {
		return "", fmt.Errorf("invalid browser %q (use one of: %s)", s, strings.Join(generic.SortedStrings(Browsers), ", "))
	}
	return b, nil
}

// Toggles are the user-facing switches a RunConfig is derived from. All fields are plain values so that two sets
// of toggles can be compared field by field.
type Toggles struct {
	Mode      Mode
	Container Container

	OutputDir   string
	Flat        bool
	ArchivePath string
	NoArchive   bool

	NoMetadata     bool
	EmbedThumbnail bool

	Transport          Transport
	Subtitles          bool
	Verbose            bool
	ForceIPv4          bool
	CookiesFile        string
	CookiesFromBrowser Browser // Empty means no browser cookies.
	Retries            int
	FragmentRetries    int
	Sleep              float64 // Seconds between downloads.
	SleepMax           float64 // Upper bound for a randomized sleep; 0 means unset.
	KeepVideo          bool
	Redownload         bool
}

// DefaultToggles returns the toggles used when no flags are given.
func DefaultToggles() Toggles {
	return Toggles{
		Mode:            ModeVideo,
		Container:       ContainerMP4,
		OutputDir:       "./downloads",
		ArchivePath:     "./downloaded.txt",
		EmbedThumbnail:  true,
		Transport:       TransportNative,
		Retries:         10,
		FragmentRetries: 10,
		Sleep:           1.0,
	}
}

// Validate checks every toggle, returning all problems at once.
func (t *Toggles) Validate() error {
	var result error
	if !modes.Contains(t.Mode) {
		result = multierror.Append(result, fmt.Errorf("invalid mode %q", t.Mode))
	}
	if !containers.Contains(t.Container) {
		result = multierror.Append(result, fmt.Errorf("invalid container %q", t.Container))
	}
	if !transports.Contains(t.Transport) {
		result = multierror.Append(result, fmt.Errorf("invalid transport %q", t.Transport))
	}
	if t.CookiesFromBrowser != "" && !Browsers.Contains(t.CookiesFromBrowser) {
		result = multierror.Append(result, fmt.Errorf("invalid browser %q", t.CookiesFromBrowser))
	}
	if strings.TrimSpace(t.OutputDir) == "" {
		result = multierror.Append(result, fmt.Errorf("output directory must not be empty"))
	}
	if t.Retries < 0 {
		result = multierror.Append(result, fmt.Errorf("retries must not be negative (got %d)", t.Retries))
	}
	if t.FragmentRetries < 0 {
		result = multierror.Append(result, fmt.Errorf("fragment retries must not be negative (got %d)", t.FragmentRetries))
	}
	if t.Sleep < 0 {
		result = multierror.Append(result, fmt.Errorf("sleep must not be negative (got %g)", t.Sleep))
	}
	return result
}

// PostProcessorKey names a post-processing step run by the engine through the transcoding tool.
type PostProcessorKey string

const (
	PPMetadata            PostProcessorKey = "FFmpegMetadata"
	PPThumbnailsConvertor PostProcessorKey = "FFmpegThumbnailsConvertor"
	PPEmbedThumbnail      PostProcessorKey = "EmbedThumbnail"
	PPExtractAudio        PostProcessorKey = "FFmpegExtractAudio"
	PPVideoRemuxer        PostProcessorKey = "FFmpegVideoRemuxer"
)

// PostProcessor is one step; each step consumes the previous step's output.
type PostProcessor struct {
	Key PostProcessorKey
	// AddChapters applies to PPMetadata.
	AddChapters bool
	// Format is the thumbnail image format, target audio codec or target container, depending on Key.
	Format string
	// Quality applies to PPExtractAudio.
	Quality string
}

// Credentials is where the engine should take cookies from; both may be empty.
type Credentials struct {
	File    string
	Browser Browser
}

// RunConfig is the engine configuration for one invocation. It is built once by BuildRunConfig and never mutated.
type RunConfig struct {
	Mode      Mode
	Container Container

	// OutputDir is the root all OutputTemplate paths are relative to.
	OutputDir      string
	OutputTemplate string
	// ArchivePath is None when the download archive is disabled.
	ArchivePath generic.Option[string]

	Format         string
	PostProcessors []PostProcessor

	Transport     Transport
	TransportArgs []string

	Retries         int
	FragmentRetries int
	Sleep           float64
	MaxSleep        generic.Option[float64]
	ForceIPv4       bool
	Credentials     Credentials

	WriteThumbnail    bool
	WriteDescription  bool
	WriteInfoJSON     bool
	WriteSubtitles    bool
	SubtitleLangs     []string
	EmbedMetadata     bool
	EmbedChapters     bool
	MergeOutputFormat string

	Overwrite           bool
	KeepVideo           bool
	IgnoreErrors        bool
	ConcurrentFragments int
	UserAgent           string
	ExtractorArgs       string
	Verbose             bool
}

// HasPostProcessor reports whether the step list contains key.
func (c *RunConfig) HasPostProcessor(key PostProcessorKey) bool {
	for _, pp := range c.PostProcessors {
		if pp.Key == key {
			return true
		}
	}
	return false
}

const (
	audioCodec         = "mp3"
	audioQuality       = "320"
	thumbnailFormat    = "jpg"
	mergeOutputFormat  = "mkv"
	defaultUserAgent   = "Mozilla/5.0"
	youtubeClientArgs  = "youtube:player_client=android"
	concurrentFragment = 2
)

// Arguments for the aria2c helper: 8 connections, 8 splits, 1MiB pieces, no periodic summary.
var aria2cArgs = []string{"-x8", "-s8", "-k1M", "--summary-interval=0"}

// FormatSelection returns the engine format expression for a mode and container. Video in the primary container
// falls back through progressively looser matches so that there is always something to pick.
func FormatSelection(mode Mode, container Container) string {
	if mode == ModeAudio {
		return "bestaudio/best"
	}
	if container == ContainerMP4 {
		return strings.Join([]string{
			"bv*[ext=mp4][vcodec~='^(av1|vp9|h264)']+ba[ext=m4a]",
			"bv*[ext=mp4]+ba[ext=m4a]",
			"b[ext=mp4]",
			"bestvideo*+bestaudio",
			"best",
		}, "/")
	}
	return "bestvideo*+bestaudio/best"
}

// PostProcessors returns the ordered post-processing steps. Thumbnail embedding only happens with metadata.
func PostProcessors(mode Mode, container Container, embedMetadata bool, embedThumbnail bool) []PostProcessor {
	var pps []PostProcessor
	if embedMetadata {
		pps = append(pps, PostProcessor{Key: PPMetadata, AddChapters: true})
		if embedThumbnail {
			if mode == ModeAudio {
				pps = append(pps, PostProcessor{Key: PPThumbnailsConvertor, Format: thumbnailFormat})
			}
			pps = append(pps, PostProcessor{Key: PPEmbedThumbnail})
		}
	}
	if mode == ModeAudio {
		pps = append(pps, PostProcessor{Key: PPExtractAudio, Format: audioCodec, Quality: audioQuality})
	} else if container == ContainerMP4 {
		pps = append(pps, PostProcessor{Key: PPVideoRemuxer, Format: string(ContainerMP4)})
	}
	return pps
}

// OutputTemplate returns the output path template, relative to the output root. The engine fills in the extension.
func OutputTemplate(flat bool) string {
	if flat {
		return "%(title)s [%(id)s].%(ext)s"
	}
	return "%(uploader)s/%(title)s [%(id)s].%(ext)s"
}

// BuildRunConfig derives the engine configuration from the toggles. It performs no I/O.
func BuildRunConfig(t Toggles) (*RunConfig, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	embedMetadata := !t.NoMetadata
	c := &RunConfig{
		Mode:           t.Mode,
		Container:      t.Container,
		OutputDir:      t.OutputDir,
		OutputTemplate: OutputTemplate(t.Flat),
		Format:         FormatSelection(t.Mode, t.Container),
		PostProcessors: PostProcessors(t.Mode, t.Container, embedMetadata, t.EmbedThumbnail),
		Transport:      t.Transport,

		Retries:         t.Retries,
		FragmentRetries: t.FragmentRetries,
		Sleep:           t.Sleep,
		MaxSleep: generic.NonZero(t.SleepMax).Filter(func(upper float64) bool {
			return upper >= t.Sleep
		}),
		ForceIPv4: t.ForceIPv4,
		Credentials: Credentials{
			File:    t.CookiesFile,
			Browser: t.CookiesFromBrowser,
		},

		WriteThumbnail:    embedMetadata,
		WriteDescription:  embedMetadata,
		WriteInfoJSON:     embedMetadata,
		WriteSubtitles:    t.Subtitles,
		EmbedMetadata:     embedMetadata,
		EmbedChapters:     embedMetadata,
		MergeOutputFormat: mergeOutputFormat,

		Overwrite:           t.Redownload,
		KeepVideo:           t.KeepVideo,
		IgnoreErrors:        true,
		ConcurrentFragments: concurrentFragment,
		UserAgent:           defaultUserAgent,
		ExtractorArgs:       youtubeClientArgs,
		Verbose:             t.Verbose,
	}
	if t.Subtitles {
		c.SubtitleLangs = []string{"all"}
	}
	if !t.NoArchive && !t.Redownload {
		c.ArchivePath = generic.NonZero(t.ArchivePath)
	}
	if t.Transport == TransportAria2c {
		c.TransportArgs = append([]string(nil), aria2cArgs...)
	}
	return c, nil
}
