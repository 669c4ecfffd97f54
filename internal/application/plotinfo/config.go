package plotinfo

import (
	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/internal/domain/oereb"
	"github.com/turtacn/plotinfo/internal/domain/plot"
)

// ConfigFrom derives the machine configuration from the application config.
func ConfigFrom(c *config.Config) Config {
	pc := c.PlotInfo
	queries := make([]plot.InfoQuery, 0, len(pc.InfoQueries))
	for _, q := range pc.InfoQueries {
		queries = append(queries, plot.InfoQuery{
			Key:        q.Key,
			Title:      q.Title,
			TitleMsgID: q.TitleMsgID,
			Query:      q.Query,
			PDFQuery:   q.PDFQuery,
			PDFTooltip: q.PDFTooltip,
			URLKey:     q.URLKey,
			ScrollMode: q.ScrollMode,
			Cfg:        q.Cfg,
		})
	}
	return Config{
		ServiceURL:        c.Service.BaseURL,
		Queries:           plot.NewQuerySet(queries),
		ToolLayers:        append([]string(nil), pc.ToolLayers...),
		ServiceProjection: pc.ServiceProjection,
		MapProjection:     pc.Map.Projection,
		Resolutions:       append([]float64(nil), pc.Map.Resolutions...),
		MapWidth:          pc.Map.Width,
		MapHeight:         pc.Map.Height,
		ExtractQueryKey:   pc.ExtractQueryKey,
		StartupParam:      pc.StartupParam,
		Language:          pc.Language,
		Subthemes:         oereb.SubthemeOrder(pc.SubthemeOrder()),
	}
}
