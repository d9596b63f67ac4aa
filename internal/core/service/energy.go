package service

import (
	"github.com/joulemark/green-scheduler/internal/core/domain"
)

const joulesPerKWh = 3_600_000.0

// EnergyModel converts CPU load into power, energy, emissions and cost.
// All methods are pure functions of the configured constants.
type EnergyModel struct {
	BaseWatts      float64
	MaxWatts       float64
	EmissionFactor float64 // kg CO2e per kWh
	CostPerKWh     float64
}

// NewEnergyModel builds a model from the simulation config.
func NewEnergyModel(baseWatts, maxWatts, emissionFactor, costPerKWh float64) *EnergyModel {
	return &EnergyModel{
		BaseWatts:      baseWatts,
		MaxWatts:       maxWatts,
		EmissionFactor: emissionFactor,
		CostPerKWh:     costPerKWh,
	}
}

// PowerWatts interpolates linearly between base and peak power:
// power = base + (max-base) * cpu/100.
func (m *EnergyModel) PowerWatts(cpuUsagePercent float64) float64 {
	return m.BaseWatts + (m.MaxWatts-m.BaseWatts)*(cpuUsagePercent/100.0)
}

// EnergyKWh converts sustained power over a duration into kilowatt-hours.
func (m *EnergyModel) EnergyKWh(powerWatts, durationSeconds float64) float64 {
	return powerWatts * durationSeconds / joulesPerKWh
}

// CO2Kg converts energy into emissions using the configured grid factor.
func (m *EnergyModel) CO2Kg(energyKWh float64) float64 {
	return energyKWh * m.EmissionFactor
}

// Cost prices energy at the configured tariff.
func (m *EnergyModel) Cost(energyKWh float64) float64 {
	return energyKWh * m.CostPerKWh
}

// EnergyMonitor accumulates an ordered log of power readings for one run and
// integrates them into totals. Not safe for concurrent use; each run owns its
// own monitor.
type EnergyMonitor struct {
	model    *EnergyModel
	readings []domain.Reading
}

// NewEnergyMonitor builds an empty monitor bound to an energy model.
func NewEnergyMonitor(model *EnergyModel) *EnergyMonitor {
	return &EnergyMonitor{model: model}
}

// Record appends a reading to the log. Readings must arrive in time order.
func (em *EnergyMonitor) Record(r domain.Reading) {
	em.readings = append(em.readings, r)
}

// Readings returns the log in record order. Callers must not modify it.
func (em *EnergyMonitor) Readings() []domain.Reading {
	return em.readings
}

// TotalEnergyKWh integrates the reading log: each interval contributes the
// earlier reading's power held for the interval length. Fewer than two
// readings integrate to zero.
func (em *EnergyMonitor) TotalEnergyKWh() float64 {
	totalJoules := 0.0
	for i := 0; i < len(em.readings)-1; i++ {
		dt := em.readings[i+1].Time - em.readings[i].Time
		totalJoules += em.readings[i].PowerWatts * dt
	}
	return totalJoules / joulesPerKWh
}

// TotalCO2Kg converts the integrated energy into emissions.
func (em *EnergyMonitor) TotalCO2Kg() float64 {
	return em.model.CO2Kg(em.TotalEnergyKWh())
}

// TotalCost prices the integrated energy.
func (em *EnergyMonitor) TotalCost() float64 {
	return em.model.Cost(em.TotalEnergyKWh())
}
