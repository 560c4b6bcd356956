package device

import "strings"

// Reference device class codes reported by the hub.
var (
	remoteClasses   = []int64{0x01070101, 0x01070201, 0x01070301}
	fanClasses      = []int64{0x04370101}
	dimmableClasses = []int64{0x04320101, 0x04320201}
	lightClasses    = []int64{0x04330101, 0x04330201}
	shadeClasses    = []int64{0x0A010101, 0x0A020101, 0x0A030101}
)

// classRule pairs a category with its reference codes. Rules are checked
// in order and the first match wins.
type classRule struct {
	category Category
	codes    []int64
}

var classRules = []classRule{
	{CategoryRemote, remoteClasses},
	{CategoryVariableFan, fanClasses},
	{CategoryDimmableLight, dimmableClasses},
	{CategoryLight, lightClasses},
	{CategoryShade, shadeClasses},
}

// ReferenceClasses returns a copy of the reference codes for each category.
func ReferenceClasses() map[Category][]int64 {
	out := make(map[Category][]int64, len(classRules))
	for _, rule := range classRules {
		out[rule.category] = append([]int64(nil), rule.codes...)
	}
	return out
}

// Classify maps a device to its category.
func Classify(d Device) Category {
	return ClassifyCode(d.DeviceClass, d.Name)
}

// ClassifyCode maps a device class code to a category.
//
// Priority is remote > fan > dimmable light > light > shade. When the hub
// reports no class at all (code 0) the name decides: a name ending in
// "Remote" is a remote, one containing "Fan" is a fan, anything else is
// treated as a dimmable light.
func ClassifyCode(code int64, name string) Category {
	if code == 0 {
		return classifyByName(name)
	}
	for _, rule := range classRules {
		for _, c := range rule.codes {
			if c == code {
				return rule.category
			}
		}
	}
	return CategoryUnsupported
}

func classifyByName(name string) Category {
	switch {
	case strings.HasSuffix(name, "Remote"):
		return CategoryRemote
	case strings.Contains(name, "Fan"):
		return CategoryVariableFan
	default:
		return CategoryDimmableLight
	}
}
