package quoting

import (
	"math"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

// SelectSide picks the side for this iteration's order per spec §4.4
// "Side selection". positionSize and notionalPerTrade are signed/absolute
// USD notionals; maxNotional is the inventory cap.
func SelectSide(positionSize, notionalPerTrade, maxNotional float64, bands BandsResult, entrySpread, exitSpread float64) (side domain.Side, trade bool) {
	if maxNotional == 0 && notionalPerTrade == 0 {
		return "", false
	}

	if math.Abs(positionSize)+notionalPerTrade > maxNotional {
		if positionSize > 0 {
			return domain.SideSell, true
		}
		return domain.SideBuy, true
	}

	distSell := bands.SellBound - entrySpread
	distExit := exitSpread - bands.BuyBound
	if distSell <= distExit {
		return domain.SideSell, true
	}
	return domain.SideBuy, true
}
