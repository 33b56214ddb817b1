package assist

import "github.com/google/grr-sub002/pkg/schema"

// Compatibility is the platform analysis of a set of referenced tables.
type Compatibility struct {
	Target schema.Platform
	// Common is the set of platforms every referenced table runs on.
	Common schema.PlatformSet
	// Incompatible lists the referenced tables unavailable on Target.
	Incompatible []*schema.TableSpec
}

// Compatible reports whether every table is available on the target.
func (c Compatibility) Compatible() bool {
	return len(c.Incompatible) == 0
}

// AnalyzeCompatibility intersects the platforms of tables and checks them
// against target. With no tables every platform is common. A zero target
// skips the per-table check.
func AnalyzeCompatibility(tables []*schema.TableSpec, target schema.Platform) Compatibility {
	c := Compatibility{Target: target, Common: schema.AllPlatforms}
	for _, t := range tables {
		c.Common = c.Common.Intersect(t.Platforms)
		if target.Valid() && !t.Platforms.Has(target) {
			c.Incompatible = append(c.Incompatible, t)
		}
	}
	return c
}
