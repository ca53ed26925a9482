package api

// Args represents a map of named values, such as seed variables or task
// outputs
type Args map[string]any

// GetString retrieves a string value from args, returning defaultValue if not
// found or wrong type
func (a Args) GetString(name string, defaultValue string) string {
	if str, ok := a[name].(string); ok {
		return str
	}
	return defaultValue
}
