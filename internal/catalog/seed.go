// SPDX-License-Identifier: MIT

package catalog

// seedAliases maps normalized channel keys to canonical ids for feeds whose
// playlist names never line up with catalog display names (network feeds,
// Canadian locals by city, a few UK staples). Consulted by the resolver as an
// exact tier before similarity ranking; an entry only applies when its id is
// present in the current valid-id set.
var seedAliases = map[string]string{
	// US network feeds
	"abc east": "ABC.East.us",
	"abc west": "ABC.West.us",
	"nbc east": "NBC.East.us",
	"nbc west": "NBC.West.us",
	"cbs east": "CBS.East.us",
	"cbs west": "CBS.West.us",
	"fox east": "FOX.East.us",
	"fox west": "FOX.West.us",
	"cw east":  "CW.us",
	"cw west":  "CW.us",
	"pbs":      "PBS.us",
	"pbs kids": "PBSKids.us",

	// US cable
	"cnn":             "CNN.us",
	"fox news":        "FoxNews.us",
	"msnbc":           "MSNBC.us",
	"espn":            "ESPN.us",
	"espn2":           "ESPN2.us",
	"fs1":             "FS1.us",
	"fox sports 1":    "FS1.us",
	"nfl network":     "NFLNetwork.us",
	"usa":             "USANetwork.us",
	"usa network":     "USANetwork.us",
	"hbo":             "HBO.us",
	"showtime":        "Showtime.us",
	"starz":           "Starz.us",
	"tcm":             "TCM.us",
	"amc":             "AMC.us",
	"nickelodeon":     "Nickelodeon.us",
	"cartoon network": "CartoonNetwork.us",

	// Canada
	"cbc toronto":   "CBLT.ca",
	"cbc vancouver": "CBUT.ca",
	"cbc fredericton": "CBAT.ca",
	"ctv toronto":   "CFTO.ca",
	"ctv calgary":   "CFCN.ca",
	"ctv vancouver": "CIVT.ca",
	"global toronto": "CIII.ca",
	"citytv":        "Citytv.ca",
	"city tv":       "Citytv.ca",
	"tsn 1":         "TSN1.ca",
	"tsn 2":         "TSN2.ca",
	"cp24":          "CP24.ca",
	"rds":           "RDS.ca",

	// UK
	"bbc one":   "BBC1.uk",
	"bbc two":   "BBC2.uk",
	"bbc news":  "BBCNews.uk",
	"itv":       "ITV.uk",
	"itv 1":     "ITV.uk",
	"channel 4": "Channel4.uk",
	"channel 5": "Channel5.uk",
	"sky news":  "SkyNews.uk",
	"dave":      "Dave.uk",
}

// SeedLookup resolves a normalized key against the built-in alias table.
func SeedLookup(key string) (string, bool) {
	id, ok := seedAliases[key]
	return id, ok
}
