package snapshot

// RequiredDataSources lists the aliases Advance Steel expects in DatabaseConfiguration.xml.
var RequiredDataSources = []string{
	"AstorRules",
	"AstorDetails",
	"AstorBase",
	"AstorSettings",
	"AstorControlStructure",
	"AstorBitmaps",
	"AstorProject",
	"AstorDetailsBase",
	"AstorKernelEnvironment",
	"AstorCurrentAddIn",
	"AstorJointsCalculation",
	"AstorGratings",
	"AstorProfiles",
	"GTCMapping",
	"AstorDatabase",
}

// MissingDataSources returns the required aliases the snapshot does not define.
func (s *Snapshot) MissingDataSources() []string {
	have := make(map[string]struct{}, len(s.DataSources))
	for _, ds := range s.DataSources {
		have[ds.Name] = struct{}{}
	}
	var missing []string
	for _, name := range RequiredDataSources {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
