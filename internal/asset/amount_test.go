package asset_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/fd1az/flashpool/internal/asset"
	"github.com/shopspring/decimal"
)

func TestAmount_Basic(t *testing.T) {
	// 1 DAI = 1e18 base units
	oneDAI := asset.NewAmount(asset.DAI, big.NewInt(1e18))

	if oneDAI.IsZero() {
		t.Error("expected non-zero amount")
	}

	d := oneDAI.ToDecimal()
	if !d.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", d.String())
	}

	if oneDAI.String() != "1 DAI" {
		t.Errorf("expected '1 DAI', got '%s'", oneDAI.String())
	}
}

func TestAmount_Add(t *testing.T) {
	oneDAI := asset.NewAmount(asset.DAI, big.NewInt(1e18))
	twoDAI := asset.NewAmount(asset.DAI, big.NewInt(2e18))

	sum, err := oneDAI.Add(twoDAI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := decimal.NewFromInt(3)
	if !sum.ToDecimal().Equal(expected) {
		t.Errorf("expected 3, got %s", sum.ToDecimal().String())
	}
}

func TestAmount_CannotAddDifferentAssets(t *testing.T) {
	oneDAI := asset.NewAmount(asset.DAI, big.NewInt(1e18))
	oneUSDC := asset.NewAmount(asset.USDC, big.NewInt(1e6))

	_, err := oneDAI.Add(oneUSDC)
	if err == nil {
		t.Error("expected error when adding different assets")
	}
}

func TestAmount_Sub(t *testing.T) {
	threeDAI := asset.NewAmount(asset.DAI, big.NewInt(3e18))
	oneDAI := asset.NewAmount(asset.DAI, big.NewInt(1e18))

	diff, err := threeDAI.Sub(oneDAI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := decimal.NewFromInt(2)
	if !diff.ToDecimal().Equal(expected) {
		t.Errorf("expected 2, got %s", diff.ToDecimal().String())
	}
}

func TestAmount_SubNegativeError(t *testing.T) {
	oneDAI := asset.NewAmount(asset.DAI, big.NewInt(1e18))
	twoDAI := asset.NewAmount(asset.DAI, big.NewInt(2e18))

	_, err := oneDAI.Sub(twoDAI)
	if err == nil {
		t.Error("expected error for negative result")
	}
}

func TestParseDecimal(t *testing.T) {
	// Parse "1.5" DAI
	d := decimal.NewFromFloat(1.5)
	amount, err := asset.ParseDecimal(asset.DAI, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := big.NewInt(0)
	expected.SetString("1500000000000000000", 10)

	if amount.Raw().Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected.String(), amount.Raw().String())
	}
}

func TestParseDecimal_TooManyDecimals(t *testing.T) {
	// USDC has 6 decimals, try to parse 1.1234567 (7 decimals)
	d := decimal.NewFromFloat(1.1234567)
	_, err := asset.ParseDecimal(asset.USDC, d)
	if err == nil {
		t.Error("expected error for too many decimals")
	}
}

func TestPrice_Convert(t *testing.T) {
	// DAI/USDC price = 1.02
	price := asset.NewPrice(asset.DAI, asset.USDC, decimal.NewFromFloat(1.02), testTime())

	// 100 DAI
	hundredDAI := asset.NewAmount(asset.DAI, new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)))

	usdc, err := price.Convert(hundredDAI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should be 102 USDC
	expected := decimal.NewFromInt(102)
	if !usdc.ToDecimal().Equal(expected) {
		t.Errorf("expected %s USDC, got %s", expected.String(), usdc.ToDecimal().String())
	}
}

func TestPrice_Invert(t *testing.T) {
	// DAI/USDC = 2
	price := asset.NewPrice(asset.DAI, asset.USDC, decimal.NewFromInt(2), testTime())

	// Invert to USDC/DAI = 0.5
	inverted := price.Invert()

	expected := decimal.NewFromFloat(0.5)
	diff := inverted.Rate().Sub(expected).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(0.0000001)) {
		t.Errorf("expected ~0.5, got %s", inverted.Rate().String())
	}
}

func TestAssetID_Identity(t *testing.T) {
	daiEth := asset.NewTokenAssetID(1, asset.AddrDAIEthereum)
	daiEth2 := asset.NewTokenAssetID(1, asset.AddrDAIEthereum)

	if !daiEth.Equals(daiEth2) {
		t.Error("same asset should have equal IDs")
	}

	// Different chains
	daiArbitrum := asset.NewTokenAssetID(asset.ChainIDArbitrum, asset.AddrDAIEthereum)

	if daiEth.Equals(daiArbitrum) {
		t.Error("different chains should have different IDs")
	}
}

func TestRegistry(t *testing.T) {
	r := asset.DefaultRegistry()

	dai, ok := r.GetBySymbolAndChain("DAI", asset.ChainIDEthereum)
	if !ok {
		t.Fatal("DAI not found in registry")
	}
	if dai.Decimals() != 18 {
		t.Errorf("expected 18 decimals, got %d", dai.Decimals())
	}

	usdc, ok := r.GetBySymbolAndChain("USDC", asset.ChainIDEthereum)
	if !ok {
		t.Fatal("USDC not found in registry")
	}
	if usdc.Decimals() != 6 {
		t.Errorf("expected 6 decimals, got %d", usdc.Decimals())
	}
}

func testTime() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}
