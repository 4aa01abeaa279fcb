package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
)

// DecodeJSONArray decodes a JSON array streaming, sending each element to a channel.
// Expects input in the form [{...},{...}].
// Both channels are closed when processing completes.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)
		decoder.UseNumber()

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}

		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}

			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "json: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// ReadJSON decodes an array of flat objects. Columns are the union of all
// object keys in sorted order; nested values are rendered as JSON.
func ReadJSON(ctx context.Context, r io.Reader, opts Options) (model.Dataset, error) {
	data, err := readAll(r, opts.MaxBytes)
	if err != nil {
		return model.Dataset{}, err
	}

	var objects []map[string]any
	outCh, errCh := DecodeJSONArray[map[string]any](ctx, bytes.NewReader(data))
	for obj := range outCh {
		objects = append(objects, obj)
	}
	for err := range errCh {
		if err != nil {
			return model.Dataset{}, eris.Wrap(err, "intake: parse json")
		}
	}

	keys := make(map[string]struct{})
	for _, obj := range objects {
		for k := range obj {
			keys[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := make([][]string, len(objects))
	for i, obj := range objects {
		cells := make([]string, len(header))
		for j, k := range header {
			cells[j] = jsonCell(obj[k])
		}
		rows[i] = cells
	}
	return tabulate(header, rows, opts.MaxRows)
}

func jsonCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
