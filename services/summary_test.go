package services

import (
	"testing"

	"junctionflow/models"
)

func TestSummarize(t *testing.T) {
	records := []models.JunctionRecord{
		{JunctionName: "J6A", PrimaryAvgSpeed: 50, SecondaryAvgSpeed: 40, RecordDate: "2024-05-01", RecordTime: "08:30:00"},
		{JunctionName: "J2", PrimaryAvgSpeed: 60, SecondaryAvgSpeed: 30, RecordDate: "2024-05-01", RecordTime: "08:30:00"},
		{JunctionName: "J2", PrimaryAvgSpeed: 64, SecondaryAvgSpeed: 30, RecordDate: "2024-05-01", RecordTime: "08:45:00"},
		{JunctionName: "J2", PrimaryAvgSpeed: 62, SecondaryAvgSpeed: 33, RecordDate: "2024-04-30", RecordTime: "23:59:00"},
	}

	got := Summarize(records)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].JunctionName != "J2" || got[1].JunctionName != "J6A" {
		t.Errorf("order = %s, %s", got[0].JunctionName, got[1].JunctionName)
	}

	j2 := got[0]
	if j2.Samples != 3 {
		t.Errorf("Samples = %d, want 3", j2.Samples)
	}
	if j2.Primary.Mean != 62 || j2.Primary.StdDev != 2 {
		t.Errorf("Primary = %+v, want mean 62 std 2", j2.Primary)
	}
	if j2.Primary.Min != 60 || j2.Primary.Max != 64 {
		t.Errorf("Primary range = %v..%v", j2.Primary.Min, j2.Primary.Max)
	}
	if j2.Secondary.Mean != 31 {
		t.Errorf("Secondary.Mean = %v, want 31", j2.Secondary.Mean)
	}
	if j2.FirstSeen != "2024-04-30 23:59:00" || j2.LastSeen != "2024-05-01 08:45:00" {
		t.Errorf("seen range = %q..%q", j2.FirstSeen, j2.LastSeen)
	}
}

func TestSummarizeCongestion(t *testing.T) {
	records := []models.JunctionRecord{
		{JunctionName: "J19", PrimaryAvgSpeed: 35, PrimarySpeedLimit: 70, SecondaryAvgSpeed: 80, SecondarySpeedLimit: 70},
		{JunctionName: "J19", PrimaryAvgSpeed: 35, PrimarySpeedLimit: 70, SecondaryAvgSpeed: 80, SecondarySpeedLimit: 70},
		{JunctionName: "J21", PrimaryAvgSpeed: 0, PrimarySpeedLimit: 50, SecondaryAvgSpeed: 10},
	}

	got := Summarize(records)
	if got[0].Primary.Congestion != 0.5 {
		t.Errorf("half the limit should score 0.5, got %v", got[0].Primary.Congestion)
	}
	if got[0].Secondary.Congestion != 0 {
		t.Errorf("above the limit should score 0, got %v", got[0].Secondary.Congestion)
	}
	if got[1].Primary.Congestion != 1 {
		t.Errorf("standstill should score 1, got %v", got[1].Primary.Congestion)
	}
	if got[1].Secondary.Congestion != 0 {
		t.Errorf("unknown limit should score 0, got %v", got[1].Secondary.Congestion)
	}
	if got[0].Confidence != 0.02 {
		t.Errorf("Confidence = %v, want 0.02", got[0].Confidence)
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	got := Summarize([]models.JunctionRecord{{JunctionName: "J10", PrimaryAvgSpeed: 55.5, SecondaryAvgSpeed: 44.25}})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Primary.StdDev != 0 || got[0].Secondary.StdDev != 0 {
		t.Errorf("single sample std dev should be 0, got %+v", got[0])
	}
	if got[0].Primary.Mean != 55.5 {
		t.Errorf("Primary.Mean = %v", got[0].Primary.Mean)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); len(got) != 0 {
		t.Errorf("Summarize(nil) = %v, want empty", got)
	}
}
