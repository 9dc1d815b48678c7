package errors

import (
	"runtime"
	"strings"
)

const selfPackage = "github.com/tphakala/codeseek/internal/errors."

// componentPackages maps a package name to the component it reports as.
var componentPackages = map[string]string{
	"datastore":     "datastore",
	"search":        "search",
	"imageprovider": "imageprovider",
	"covercache":    "covercache",
	"cover":         "cover",
	"render":        "render",
	"session":       "session",
	"telegram":      "telegram",
	"notification":  "notification",
	"conf":          "configuration",
	"api":           "api",
	"v1":            "api",
	"mcpserver":     "mcp",
}

// detectComponent attributes the error to the first known package on the stack
// outside this one.
func detectComponent() string {
	pcs := make([]uintptr, 32)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs)])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, selfPackage) {
			if component := lookupComponent(frame.Function); component != ComponentUnknown {
				return component
			}
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// lookupComponent maps a fully qualified function name to a component.
func lookupComponent(funcName string) string {
	pkg := funcName
	if slash := strings.LastIndexByte(pkg, '/'); slash >= 0 {
		pkg = pkg[slash+1:]
	}
	pkg, _, _ = strings.Cut(pkg, ".")
	if component, ok := componentPackages[pkg]; ok {
		return component
	}
	return ComponentUnknown
}

// detectCategory guesses a category from the error chain, its message and
// finally the component.
func detectCategory(err error, component string) ErrorCategory {
	var categorized CategorizedError
	if As(err, &categorized) {
		return categorized.ErrorCategory()
	}
	var ee *EnhancedError
	if As(err, &ee) && ee.Category != "" {
		return ee.Category
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return CategoryTimeout
	case strings.Contains(msg, "context canceled"):
		return CategoryCancellation
	case strings.Contains(msg, "connection") || strings.Contains(msg, "dial"):
		return CategoryNetwork
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "validation"):
		return CategoryValidation
	}

	switch component {
	case "datastore":
		return CategoryDatabase
	case "search":
		return CategorySearch
	case "covercache":
		return CategoryImageCache
	case "imageprovider", "cover":
		if strings.Contains(msg, "fetch") || strings.Contains(msg, "download") || strings.Contains(msg, "url") {
			return CategoryImageFetch
		}
		return CategoryImageProvider
	case "render", "telegram":
		return CategoryDelivery
	case "configuration":
		return CategoryConfiguration
	}
	return CategoryGeneric
}
