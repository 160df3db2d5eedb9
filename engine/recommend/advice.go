package recommend

import (
	"fmt"

	"wifi-monitor/model"
)

// AdviceMessage produces the human guidance line shown beside the
// recommendation list. current is the AP the requester appears to be on
// (nil when none was detected nearby).
func AdviceMessage(current *model.RankedAccessPoint, recs []model.RankedAccessPoint) string {
	if current == nil {
		return "We couldn't detect your current access point. Here are the best options nearby."
	}

	status := string(current.Status)
	switch {
	case current.QualityScore < 40:
		if len(recs) == 0 {
			return fmt.Sprintf("Your current connection is %s. Unfortunately, no better options detected nearby.", status)
		}
		best := recs[0]
		return fmt.Sprintf("Your current connection is %s. Best nearby location: %s floor %s (%s) with %g Mbps download.",
			status, best.DisplayBuilding(), best.DisplayFloor(), best.Name, best.DownloadSpeed)
	case current.QualityScore < 60:
		if len(recs) > 0 && recs[0].QualityScore > current.QualityScore {
			best := recs[0]
			return fmt.Sprintf("Your current connection is %s. You could get better performance at %s floor %s (%s).",
				status, best.DisplayBuilding(), best.DisplayFloor(), best.Name)
		}
		return fmt.Sprintf("Your current connection is %s. Your current location is among the best options.", status)
	default:
		return fmt.Sprintf("Your current connection is %s. Enjoy your fast connection!", status)
	}
}
