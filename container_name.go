package covidpipe

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/snpseq/covidpipe/lims"
	"github.com/snpseq/covidpipe/utils"
)

// Plate stages appearing in production container names.
const (
	StagePrext   = "PREXT"
	StageBiobank = "BIOBANK"
	StageRtPCR   = "RTPCR"
)

// ProductionPlateName builds COVID_<YYMMDD>_<stage>_<HHMMSS> in lab local
// time. Two plates created in the same batch share the timestamp.
func ProductionPlateName(stage string, at time.Time) string {
	local := utils.InStockholmTime(at)
	return fmt.Sprintf("COVID_%s_%s_%s", local.Format("060102"), stage, local.Format("150405"))
}

// SequencingPlateName builds NPCSEQ_<biobank_plate>_<stage>_<timestamp>.
func SequencingPlateName(biobankPlate, stage string, at time.Time) string {
	local := utils.InStockholmTime(at)
	return fmt.Sprintf("NPCSEQ_%s_%s_%s", biobankPlate, stage, local.Format("060102T150405"))
}

var productionNamePattern = regexp.MustCompile(`^COVID_(\d{6})_([A-Z]+)_(\d{6})(?:\.v(\d+))?$`)

// ParseProductionPlateName splits a production container name into its date,
// stage, time and version parts. Version 0 means unversioned.
func ParseProductionPlateName(name string) (date, stage, timeOfDay string, version int, ok bool) {
	match := productionNamePattern.FindStringSubmatch(name)
	if match == nil {
		return "", "", "", 0, false
	}
	version = 0
	if match[4] != "" {
		fmt.Sscanf(match[4], "%d", &version)
	}
	return match[1], match[2], match[3], version, true
}

const maxNameVersions = 100

// NextVersionedName appends the smallest .v<n>, n >= 1, such that no
// container with that name exists remotely.
func NextVersionedName(ctx context.Context, limsClient lims.Client, baseName string) (string, error) {
	for version := 1; version <= maxNameVersions; version++ {
		candidate := fmt.Sprintf("%s.v%d", baseName, version)
		exists, err := limsClient.ContainerNameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free version suffix for %s within %d attempts", baseName, maxNameVersions)
}
