package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joulemark/green-scheduler/config/logger"
	config "github.com/joulemark/green-scheduler/config/utils"
	"github.com/joulemark/green-scheduler/internal/adapter/monitoring/prometheus"
	"github.com/joulemark/green-scheduler/internal/core/domain"
	"github.com/joulemark/green-scheduler/internal/core/port"
	"github.com/joulemark/green-scheduler/internal/core/service"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
)

func main() {
	rootCtx, rootCtxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCtxCancel()

	appConfig := config.New()
	log := logger.Build(appConfig.Logger)

	telemetry := prometheus.NewTelemetryService(
		appConfig.Telemetry.PrometheusURL,
		appConfig.Telemetry.FallbackCPU,
		appConfig.Telemetry.FallbackMem,
		log,
	)

	sim := appConfig.Simulation
	model := service.NewEnergyModel(sim.BasePowerWatts, sim.MaxPowerWatts, sim.EmissionFactor, sim.CostPerKWh)
	monitor := service.NewEnergyMonitor(model)

	interval := time.Duration(sim.SamplingInterval * float64(time.Second))
	if interval <= 0 {
		interval = time.Second
	}

	fmt.Println(colorCyan + "⚡ Live Energy Monitor Starting..." + colorReset)
	fmt.Println(colorGray + fmt.Sprintf("Sampling host telemetry every %s (Ctrl+C for summary)", interval) + colorReset)
	fmt.Println("-------------------------------------------------------------------------")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			printSummary(monitor)
			return
		case <-ticker.C:
			sample(rootCtx, telemetry, model, monitor)
		}
	}
}

func sample(ctx context.Context, telemetry port.TelemetryService, model *service.EnergyModel, monitor *service.EnergyMonitor) {
	cpu, mem, err := telemetry.GetHostMetrics(ctx)
	if err != nil {
		fmt.Printf(colorYellow+"! telemetry error: %v"+colorReset+"\n", err)
		return
	}

	power := model.PowerWatts(cpu)
	scaled := service.ApplyDVFS(power, cpu)

	monitor.Record(domain.Reading{
		Time:       float64(time.Now().UnixNano()) / 1e9,
		CPUUsage:   cpu,
		MemUsage:   mem,
		PowerWatts: power,
	})

	fmt.Printf("cpu=%5.1f%%  mem=%8.1f  power=%5.2fW  "+colorGreen+"dvfs=%5.2fW"+colorReset+"  energy=%.6f kWh\n",
		cpu, mem, power, scaled, monitor.TotalEnergyKWh())
}

func printSummary(monitor *service.EnergyMonitor) {
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("ENERGY CONSUMPTION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Total Energy:    %.6f kWh\n", monitor.TotalEnergyKWh())
	fmt.Printf("CO2 Emissions:   %.4f kg CO2e\n", monitor.TotalCO2Kg())
	fmt.Printf("Cost:            ₹%.2f\n", monitor.TotalCost())
	fmt.Printf("Number of readings: %d\n", len(monitor.Readings()))
	fmt.Println("============================================================")
}
