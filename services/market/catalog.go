package market

import "time"

// HistoryLength is the size of the sliding price window kept per asset
const HistoryLength = 20

type seedAsset struct {
	asset  Asset
	base   float64 // lowest seeded history price
	spread float64 // width of the seeded history band
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

var seedAssets = []seedAsset{
	{Asset{Ticker: "PETR4", Name: "Petrobras PN", Kind: KindEquity, Price: 38.45, ChangePercent: 1.2, DividendYield: 14.5, PriceToBook: 1.1, MarketCap: 520e9, ProjectedReturn: 18.5, NextDividend: &Dividend{Date: day("2024-05-20"), Value: 1.15}, Sector: "Petróleo e Gás"}, 35, 5},
	{Asset{Ticker: "MXRF11", Name: "Maxi Renda FII", Kind: KindFund, Price: 10.52, ChangePercent: -0.4, DividendYield: 12.8, PriceToBook: 1.05, MarketCap: 2.5e9, ProjectedReturn: 13.2, NextDividend: &Dividend{Date: day("2024-04-15"), Value: 0.10}, Sector: "Papel"}, 10, 1},
	{Asset{Ticker: "VALE3", Name: "Vale ON", Kind: KindEquity, Price: 65.20, ChangePercent: -2.1, DividendYield: 8.2, PriceToBook: 0.95, MarketCap: 310e9, ProjectedReturn: 12.8, Sector: "Mineração"}, 60, 10},
	{Asset{Ticker: "HGLG11", Name: "CGHG Logística FII", Kind: KindFund, Price: 165.40, ChangePercent: 0.15, DividendYield: 9.1, PriceToBook: 1.02, MarketCap: 3.8e9, ProjectedReturn: 10.5, NextDividend: &Dividend{Date: day("2024-04-14"), Value: 1.10}, Sector: "Logística"}, 160, 10},
	{Asset{Ticker: "ITUB4", Name: "Itaú Unibanco PN", Kind: KindEquity, Price: 32.15, ChangePercent: 0.8, DividendYield: 6.5, PriceToBook: 1.45, MarketCap: 280e9, ProjectedReturn: 15.2, Sector: "Financeiro"}, 30, 4},
	{Asset{Ticker: "BBAS3", Name: "Banco do Brasil ON", Kind: KindEquity, Price: 27.80, ChangePercent: 1.5, DividendYield: 10.2, PriceToBook: 0.88, MarketCap: 160e9, ProjectedReturn: 16.8, NextDividend: &Dividend{Date: day("2024-06-12"), Value: 0.45}, Sector: "Financeiro"}, 25, 5},
	{Asset{Ticker: "KNRI11", Name: "Kinea Renda Imob. FII", Kind: KindFund, Price: 158.30, ChangePercent: -0.2, DividendYield: 8.5, PriceToBook: 0.98, MarketCap: 4.2e9, ProjectedReturn: 11.2, NextDividend: &Dividend{Date: day("2024-04-10"), Value: 1.00}, Sector: "Híbrido"}, 155, 8},
	{Asset{Ticker: "ABEV3", Name: "Ambev ON", Kind: KindEquity, Price: 12.45, ChangePercent: -0.5, DividendYield: 6.2, PriceToBook: 2.1, MarketCap: 195e9, ProjectedReturn: 9.5, Sector: "Consumo"}, 11, 2},
	{Asset{Ticker: "VISC11", Name: "Vinci Shopping FII", Kind: KindFund, Price: 118.90, ChangePercent: 0.6, DividendYield: 9.8, PriceToBook: 1.01, MarketCap: 2.8e9, ProjectedReturn: 12.5, NextDividend: &Dividend{Date: day("2024-04-18"), Value: 1.00}, Sector: "Shoppings"}, 115, 10},
	{Asset{Ticker: "WEGE3", Name: "Weg ON", Kind: KindEquity, Price: 38.90, ChangePercent: 2.3, DividendYield: 1.8, PriceToBook: 8.5, MarketCap: 165e9, ProjectedReturn: 14.2, Sector: "Bens Industriais"}, 35, 6},
}

// SeedCatalog builds the static starting catalog. History points are daily
// from 2024-01-01 with prices drawn from r inside each asset's band; the last
// point carries the current price.
func SeedCatalog(r Rand) []Asset {
	start := day("2024-01-01")
	catalog := make([]Asset, len(seedAssets))
	for i, s := range seedAssets {
		a := s.asset.Clone()
		a.History = make([]PricePoint, HistoryLength)
		for j := range a.History {
			a.History[j] = PricePoint{
				Time:  start.AddDate(0, 0, j),
				Price: roundCents(s.base + r.Float64()*s.spread),
			}
		}
		a.History[HistoryLength-1].Price = a.Price
		catalog[i] = a
	}
	return catalog
}
