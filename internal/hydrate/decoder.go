package hydrate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Format identifies the shape of a release payload.
type Format int

const (
	// FormatAuto detects the format from the payload.
	FormatAuto Format = iota
	// FormatReleases is a JSON array of releases.
	FormatReleases
	// FormatReleasePackage is an object with a "releases" array.
	FormatReleasePackage
	// FormatRecordPackage is an object with a "records" array whose entries
	// carry "releases".
	FormatRecordPackage
	// FormatRelease is a single release object.
	FormatRelease
	// FormatLines is one JSON value per line; each line may itself be any of
	// the formats above.
	FormatLines
)

func (f Format) String() string {
	switch f {
	case FormatReleases:
		return "releases"
	case FormatReleasePackage:
		return "release-package"
	case FormatRecordPackage:
		return "record-package"
	case FormatRelease:
		return "release"
	case FormatLines:
		return "lines"
	default:
		return "auto"
	}
}

// ParseFormat converts a format name. The empty string selects FormatAuto.
func ParseFormat(value string) (Format, error) {
	switch value {
	case "", "auto":
		return FormatAuto, nil
	case "releases", "array":
		return FormatReleases, nil
	case "release-package", "package":
		return FormatReleasePackage, nil
	case "record-package":
		return FormatRecordPackage, nil
	case "release":
		return FormatRelease, nil
	case "lines", "jsonl":
		return FormatLines, nil
	default:
		return FormatAuto, fmt.Errorf("hydrate: unknown format %q", value)
	}
}

// ErrEmptyPayload is returned when a payload holds no JSON value.
var ErrEmptyPayload = errors.New("hydrate: payload is empty")

// Context identifies the payload being decoded.
type Context struct {
	Source string
	Line   int
}

// PreHook lets callers normalise each release before it is returned. Returning
// a nil map keeps the release unchanged.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers validate or reorder the decoded releases.
type PostHook func(Context, []any) ([]any, error)

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts raw payloads into release documents ready to merge.
type Decoder struct {
	format       Format
	preHooks     []PreHook
	postHooks    []PostHook
	configureDec []func(*json.Decoder)
}

// WithFormat skips detection and decodes payloads as format.
func WithFormat(format Format) DecoderOption {
	return func(d *Decoder) {
		d.format = format
	}
}

// WithPreHook applies hook to every decoded release.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook to the full release list.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber so numbers keep their textual
// form.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDecoderConfig allows callers to configure the json.Decoder directly.
func WithDecoderConfig(configure func(*json.Decoder)) DecoderOption {
	return func(d *Decoder) {
		if configure != nil {
			d.configureDec = append(d.configureDec, configure)
		}
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode reads payload and returns its releases in payload order. Elements that
// are not objects are returned as-is so the merger can report them.
func (d *Decoder) Decode(ctx Context, payload []byte) ([]any, error) {
	var (
		releases []any
		err      error
	)
	if d.format == FormatLines {
		releases, err = d.decodeLines(ctx, payload)
	} else {
		releases, err = d.decodeDocument(ctx, payload, d.format)
	}
	if err != nil {
		return nil, err
	}

	for i, release := range releases {
		doc, ok := release.(map[string]any)
		if !ok {
			continue
		}
		for _, hook := range d.preHooks {
			if hook == nil {
				continue
			}
			next, err := hook(ctx, doc)
			if err != nil {
				return nil, fmt.Errorf("hydrate: pre-hook for %s release %d failed: %w", describe(ctx), i, err)
			}
			if next != nil {
				doc = next
			}
		}
		releases[i] = doc
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, releases)
		if err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %s failed: %w", describe(ctx), err)
		}
		if next != nil {
			releases = next
		}
	}
	return releases, nil
}

// DecodeReader reads r fully and decodes it.
func (d *Decoder) DecodeReader(ctx Context, r io.Reader) ([]any, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("hydrate: read %s: %w", describe(ctx), err)
	}
	return d.Decode(ctx, payload)
}

func (d *Decoder) decodeLines(ctx Context, payload []byte) ([]any, error) {
	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var releases []any
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		lineCtx := ctx
		lineCtx.Line = line
		items, err := d.decodeDocument(lineCtx, text, FormatAuto)
		if err != nil {
			return nil, err
		}
		releases = append(releases, items...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("hydrate: scan %s: %w", describe(ctx), err)
	}
	return releases, nil
}

func (d *Decoder) decodeDocument(ctx Context, payload []byte, format Format) ([]any, error) {
	var value any
	decoder := json.NewDecoder(bytes.NewReader(payload))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	if err := decoder.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyPayload
		}
		return nil, fmt.Errorf("hydrate: decode %s: %w", describe(ctx), err)
	}
	if decoder.More() {
		if format == FormatAuto && ctx.Line == 0 {
			return d.decodeLines(ctx, payload)
		}
		return nil, fmt.Errorf("hydrate: decode %s: trailing data after JSON value", describe(ctx))
	}
	if format == FormatAuto {
		format = detect(value)
	}

	switch format {
	case FormatReleases:
		items, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("hydrate: %s is not a JSON array", describe(ctx))
		}
		return items, nil
	case FormatReleasePackage:
		return field(ctx, value, "releases")
	case FormatRecordPackage:
		records, err := field(ctx, value, "records")
		if err != nil {
			return nil, err
		}
		var releases []any
		for i, record := range records {
			items, err := field(ctx, record, "releases")
			if err != nil {
				return nil, fmt.Errorf("hydrate: record %d: %w", i, err)
			}
			releases = append(releases, items...)
		}
		return releases, nil
	default:
		return []any{value}, nil
	}
}

func detect(value any) Format {
	switch typed := value.(type) {
	case []any:
		return FormatReleases
	case map[string]any:
		if _, ok := typed["records"]; ok {
			return FormatRecordPackage
		}
		if _, ok := typed["releases"]; ok {
			return FormatReleasePackage
		}
	}
	return FormatRelease
}

func field(ctx Context, value any, name string) ([]any, error) {
	doc, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("hydrate: %s is not a JSON object", describe(ctx))
	}
	items, ok := doc[name].([]any)
	if !ok {
		return nil, fmt.Errorf("hydrate: %s has no %q array", describe(ctx), name)
	}
	return items, nil
}

func describe(ctx Context) string {
	source := ctx.Source
	if source == "" {
		source = "payload"
	}
	if ctx.Line > 0 {
		return fmt.Sprintf("%s line %d", source, ctx.Line)
	}
	return source
}
