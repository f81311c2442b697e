package llm

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

// NormalizeReplyKeys maps reply keys onto spec keys and drops everything else.
//   - exact key matches win;
//   - otherwise a key matching a spec key or display name case-insensitively
//     (with '_', '-' and spaces treated alike) is renamed;
//   - unknown keys are dropped and reported.
func NormalizeReplyKeys(m map[string]any, specs fields.SpecSet, logger *slog.Logger) (map[string]any, []string) {
	if logger == nil {
		logger = slog.Default()
	}

	aliases := make(map[string]string, specs.Len()*2)
	for _, sp := range specs.Specs() {
		aliases[looseKey(sp.Key)] = sp.Key
		if n := looseKey(sp.Name); n != "" {
			if _, taken := aliases[n]; !taken {
				aliases[n] = sp.Key
			}
		}
	}

	out := make(map[string]any, specs.Len())
	var dropped []string

	// exact matches first so a renamed alias never overwrites them
	for k, v := range m {
		if specs.Has(k) {
			out[k] = v
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if specs.Has(k) {
			continue
		}
		target, ok := aliases[looseKey(k)]
		if !ok {
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		if _, exists := out[target]; exists {
			dropped = append(dropped, k+"(duplicate)")
			continue
		}
		out[target] = m[k]
		dropped = append(dropped, k+"->"+target)
	}

	if len(dropped) > 0 {
		logger.Warn("llm.reply.normalize_keys", "dropped", dropped)
	}
	return out, dropped
}

func looseKey(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}
