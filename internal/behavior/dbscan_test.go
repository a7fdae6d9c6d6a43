package behavior

import (
	"math"
	"testing"
	"time"

	"github.com/selivandex/campaign-advisor/pkg/models"
)

func TestFundingCodes(t *testing.T) {
	records := []models.WalletRecord{
		{Address: "0x1", FundingSource: "0xccc"},
		{Address: "0x2", FundingSource: "0xaaa"},
		{Address: "0x3", FundingSource: "0xbbb"},
		{Address: "0x4", FundingSource: "0xaaa"},
	}

	codes := fundingCodes(records)
	want := []float64{2, 0, 1, 0}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("code[%d] = %v, want %v", i, codes[i], want[i])
		}
	}
}

func TestStandardize(t *testing.T) {
	t.Run("zero mean and unit variance", func(t *testing.T) {
		out := standardize([]float64{1, 2, 3, 4, 5})

		sum := 0.0
		for _, v := range out {
			sum += v
		}
		if math.Abs(sum) > 1e-9 {
			t.Errorf("mean = %v, want 0", sum/float64(len(out)))
		}

		variance := 0.0
		for _, v := range out {
			variance += v * v
		}
		variance /= float64(len(out))
		if math.Abs(variance-1) > 1e-9 {
			t.Errorf("variance = %v, want 1", variance)
		}
	})

	t.Run("constant input maps to zeros", func(t *testing.T) {
		for _, v := range standardize([]float64{7, 7, 7}) {
			if v != 0 {
				t.Fatalf("expected zeros, got %v", v)
			}
		}
	})
}

func TestDBSCAN(t *testing.T) {
	t.Run("two dense groups and an outlier", func(t *testing.T) {
		points := [][2]float64{
			{0, 0}, {0.1, 0}, {0, 0.1}, {0.1, 0.1},
			{5, 5}, {5.1, 5}, {5, 5.1}, {5.1, 5.1},
			{2.5, 2.5},
		}

		labels := dbscan(points, 0.5, 3)

		if labels[8] != labelNoise {
			t.Errorf("outlier label = %d, want noise", labels[8])
		}
		for i := 1; i < 4; i++ {
			if labels[i] != labels[0] {
				t.Errorf("point %d label = %d, want %d", i, labels[i], labels[0])
			}
		}
		for i := 5; i < 8; i++ {
			if labels[i] != labels[4] {
				t.Errorf("point %d label = %d, want %d", i, labels[i], labels[4])
			}
		}
		if labels[0] == labels[4] {
			t.Error("expected the two groups in different clusters")
		}
	})

	t.Run("all sparse points are noise", func(t *testing.T) {
		points := [][2]float64{{0, 0}, {10, 10}, {20, 20}}
		for i, label := range dbscan(points, 0.5, 3) {
			if label != labelNoise {
				t.Errorf("point %d label = %d, want noise", i, label)
			}
		}
	})

	t.Run("pair forms a cluster with relaxed minPts", func(t *testing.T) {
		points := [][2]float64{{0, 0}, {0.1, 0.1}}
		labels := dbscan(points, 0.5, 2)
		if labels[0] != 0 || labels[1] != 0 {
			t.Errorf("labels = %v, want both in cluster 0", labels)
		}
	})

	t.Run("single point is noise even with relaxed minPts", func(t *testing.T) {
		labels := dbscan([][2]float64{{0, 0}}, 0.5, 2)
		if labels[0] != labelNoise {
			t.Errorf("label = %d, want noise", labels[0])
		}
	})
}

func TestClusterFeatureSpace(t *testing.T) {
	// Nine wallets: two farms of four funded by the same source within
	// minutes, one independent wallet months apart from both.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []models.WalletRecord
	for i := 0; i < 4; i++ {
		records = append(records, models.WalletRecord{
			Address:       addr("a", i),
			FundingSource: "0xfunder1",
			FirstSeen:     base.Add(time.Duration(i) * time.Minute),
		})
	}
	for i := 0; i < 4; i++ {
		records = append(records, models.WalletRecord{
			Address:       addr("b", i),
			FundingSource: "0xfunder2",
			FirstSeen:     base.AddDate(0, 6, 0).Add(time.Duration(i) * time.Minute),
		})
	}
	records = append(records, models.WalletRecord{
		Address:       "0xlone",
		FundingSource: "0xfunder3",
		FirstSeen:     base.AddDate(0, 3, 0),
	})

	codes := standardize(fundingCodes(records))
	times := make([]float64, len(records))
	for i, r := range records {
		times[i] = float64(r.FirstSeen.Unix())
	}
	times = standardize(times)

	points := make([][2]float64, len(records))
	for i := range records {
		points[i] = [2]float64{codes[i], times[i]}
	}

	labels := dbscan(points, clusterEps, clusterMinPts)

	if labels[8] != labelNoise {
		t.Errorf("independent wallet label = %d, want noise", labels[8])
	}
	if labels[0] == labels[4] {
		t.Error("expected the two farms in separate clusters")
	}
	for i := 0; i < 4; i++ {
		if labels[i] != labels[0] || labels[i+4] != labels[4] {
			t.Fatalf("farm membership broken: %v", labels)
		}
	}
}

func addr(prefix string, i int) string {
	return "0x" + prefix + string(rune('0'+i))
}
