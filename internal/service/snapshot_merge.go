package service

import (
	"gopkg.in/guregu/null.v4"

	"evmobile/internal/models"
)

// MergeSnapshot overlays next on prev field by field. A null field in next
// keeps the previous value; a non-null field replaces it. Energy never
// decreases while the session is charging.
func MergeSnapshot(prev, next models.SessionSnapshot) models.SessionSnapshot {
	out := prev
	if out.SessionID == "" {
		out.SessionID = next.SessionID
	}
	if next.Status != "" {
		out.Status = next.Status
	}

	out.EnergyKWh = mergeEnergy(prev.EnergyKWh, next.EnergyKWh, out.Status)
	out.SOCPercent = pickInt(prev.SOCPercent, next.SOCPercent)
	out.MinutesRemaining = pickInt(prev.MinutesRemaining, next.MinutesRemaining)
	out.ChargingMinutes = pickInt(prev.ChargingMinutes, next.ChargingMinutes)
	out.PriceAccrued = pickFloat(prev.PriceAccrued, next.PriceAccrued)
	out.MaxAmount = pickInt(prev.MaxAmount, next.MaxAmount)
	out.OCPPTransactionID = pickInt(prev.OCPPTransactionID, next.OCPPTransactionID)
	out.ChargerPointID = pickString(prev.ChargerPointID, next.ChargerPointID)
	out.ConnectorID = pickString(prev.ConnectorID, next.ConnectorID)
	out.ConnectorNumber = pickInt(prev.ConnectorNumber, next.ConnectorNumber)
	out.StartedAt = pickTime(prev.StartedAt, next.StartedAt)
	out.LastUpdateAt = pickTime(prev.LastUpdateAt, next.LastUpdateAt)
	return out
}

func mergeEnergy(prev, next null.Float, status models.SessionStatus) null.Float {
	if !next.Valid {
		return prev
	}
	if status == models.SessionStatusCharging && prev.Valid && next.Float64 < prev.Float64 {
		return prev
	}
	return next
}

func pickInt(prev, next null.Int) null.Int {
	if next.Valid {
		return next
	}
	return prev
}

func pickFloat(prev, next null.Float) null.Float {
	if next.Valid {
		return next
	}
	return prev
}

func pickString(prev, next null.String) null.String {
	if next.Valid {
		return next
	}
	return prev
}

func pickTime(prev, next null.Time) null.Time {
	if next.Valid {
		return next
	}
	return prev
}
