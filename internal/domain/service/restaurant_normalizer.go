package service

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"lugares/internal/domain/entity"
	"lugares/internal/domain/repository"
)

// Legacy field names accepted for each amenity flag, first defined wins.
var (
	deliveryAliases   = []string{"domicilios", "domicilio"}
	voucherAliases    = []string{"tiquetera", "ticketera", "descuento"}
	vegetarianAliases = []string{"vegetariano", "menuVegetariano"}

	latitudeAliases  = []string{"latitude", "lat", "latitud"}
	longitudeAliases = []string{"longitude", "lng", "longitud"}
)

const (
	cuisineArtifacts = " \t\r\n[]{}\"'`“”"
	maxCuisineDepth  = 4
)

// NormalizeRestaurant maps a raw Restaurante document onto the canonical snapshot.
// It never fails: unusable values fall back to their zero value, and unusable
// coordinates leave Position nil.
func NormalizeRestaurant(doc *repository.Document) entity.RestaurantSnapshot {
	fields := map[string]interface{}{}
	id := ""
	if doc != nil {
		id = doc.ID
		if doc.Fields != nil {
			fields = doc.Fields
		}
	}

	position := ExtractCoordinates(fields["pos"])
	if position == nil {
		position = ExtractCoordinates(fields)
	}

	count, _ := CoerceNumber(fields[repository.FieldRatingCount])

	return entity.RestaurantSnapshot{
		ID:          id,
		Name:        stringField(fields, "nombre"),
		Description: stringField(fields, "descripcion"),
		Address:     stringField(fields, "direccion"),
		Contact:     stringField(fields, "contacto"),
		OpeningTime: stringField(fields, "horaApertura"),
		ClosingTime: stringField(fields, "horaCierre"),
		PriceRange:  stringField(fields, "precio"),

		OffersDelivery:       CoerceBool(firstDefined(fields, deliveryAliases...)),
		AcceptsVouchers:      CoerceBool(firstDefined(fields, voucherAliases...)),
		HasVegetarianOptions: CoerceBool(firstDefined(fields, vegetarianAliases...)),

		Cuisines: NormalizeCuisineList(fields["tipoComida"]),
		Position: position,

		Rating:      numberOrZero(fields[repository.FieldRating]),
		RatingCount: int(count),
		RatingTotal: numberOrZero(fields[repository.FieldRatingTotal]),
	}
}

// CoerceBool treats true, the number 1 and the strings "true", "1", "si" as true.
func CoerceBool(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		n := strings.ToLower(strings.TrimSpace(t))
		return n == "true" || n == "1" || n == "si"
	default:
		f, ok := numeric(v)
		return ok && f == 1
	}
}

// CoerceNumber accepts any numeric kind or a numeric string and reports
// whether the result is finite.
func CoerceNumber(v interface{}) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}

	f, ok := numeric(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ExtractCoordinates reads a GeoPoint or a loose lat/lng map.
func ExtractCoordinates(raw interface{}) *entity.Coordinates {
	switch p := raw.(type) {
	case repository.GeoPoint:
		return finiteCoordinates(p.Latitude, p.Longitude)
	case *repository.GeoPoint:
		if p == nil {
			return nil
		}
		return finiteCoordinates(p.Latitude, p.Longitude)
	case map[string]interface{}:
		lat, ok := CoerceNumber(lookupFold(p, latitudeAliases))
		if !ok {
			return nil
		}
		lng, ok := CoerceNumber(lookupFold(p, longitudeAliases))
		if !ok {
			return nil
		}
		return &entity.Coordinates{Latitude: lat, Longitude: lng}
	}
	return nil
}

// NormalizeCuisineList flattens whatever shape tipoComida was stored in into
// an ordered list of non-empty tags.
func NormalizeCuisineList(raw interface{}) []string {
	out := []string{}
	collectCuisine(raw, &out, 0)
	return out
}

func collectCuisine(raw interface{}, out *[]string, depth int) {
	if depth > maxCuisineDepth {
		return
	}

	switch v := raw.(type) {
	case nil:
	case string:
		collectCuisineString(v, out, depth)
	case []string:
		for _, item := range v {
			appendCuisine(out, item)
		}
	case []interface{}:
		for _, item := range v {
			collectCuisineItem(item, out, depth)
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sortObjectKeys(keys)
		for _, k := range keys {
			collectCuisineItem(v[k], out, depth)
		}
	default:
		if f, ok := numeric(v); ok {
			appendCuisine(out, strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
}

// sortObjectKeys orders keys the way a JSON object written by the mobile
// client enumerates them: array-index keys numerically, then the rest.
func sortObjectKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, aIndex := arrayIndex(keys[i])
		b, bIndex := arrayIndex(keys[j])
		switch {
		case aIndex && bIndex:
			return a < b
		case aIndex != bIndex:
			return aIndex
		default:
			return keys[i] < keys[j]
		}
	})
}

func arrayIndex(key string) (uint64, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil || n >= 1<<32-1 {
		return 0, false
	}
	return n, true
}

func collectCuisineItem(item interface{}, out *[]string, depth int) {
	switch t := item.(type) {
	case string:
		appendCuisine(out, t)
	default:
		collectCuisine(t, out, depth+1)
	}
}

func collectCuisineString(s string, out *[]string, depth int) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return
	}

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "\"") {
		var decoded interface{}
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			switch d := decoded.(type) {
			case []interface{}, map[string]interface{}:
				collectCuisine(d, out, depth+1)
				return
			case string:
				collectCuisineString(d, out, depth+1)
				return
			}
		}
	}

	for _, part := range strings.FieldsFunc(trimmed, func(r rune) bool { return r == ';' || r == ',' }) {
		appendCuisine(out, part)
	}
}

func appendCuisine(out *[]string, item string) {
	if cleaned := strings.Trim(item, cuisineArtifacts); cleaned != "" {
		*out = append(*out, cleaned)
	}
}

func finiteCoordinates(lat, lng float64) *entity.Coordinates {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return nil
	}
	return &entity.Coordinates{Latitude: lat, Longitude: lng}
}

func firstDefined(fields map[string]interface{}, names ...string) interface{} {
	for _, name := range names {
		if v, ok := fields[name]; ok && v != nil {
			return v
		}
	}
	return nil
}

// lookupFold returns the first non-nil value whose key matches an alias,
// exact matches before case-insensitive ones.
func lookupFold(m map[string]interface{}, aliases []string) interface{} {
	if v := firstDefined(m, aliases...); v != nil {
		return v
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, alias := range aliases {
		for _, k := range keys {
			if strings.EqualFold(k, alias) && m[k] != nil {
				return m[k]
			}
		}
	}
	return nil
}

func stringField(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func numberOrZero(v interface{}) float64 {
	f, _ := CoerceNumber(v)
	return f
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
