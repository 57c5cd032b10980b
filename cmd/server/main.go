package main

import (
	"log"

	"tax_flow_app_go/config"
	"tax_flow_app_go/db"
	"tax_flow_app_go/handlers"
	"tax_flow_app_go/middleware"
	"tax_flow_app_go/models"
	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	conn, err := db.Initialize(cfg.DBPath, cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close(conn)

	// Run migrations
	if err := db.AutoMigrate(conn,
		&models.Usuario{},
		&models.Sesion{},
		&models.Registro{},
		&models.Calificacion{},
		&models.CalificacionRelacional{},
		&models.CalificacionEstadoLog{},
		&models.CalificacionCambioLog{},
		&models.ReglaNegocio{},
		&models.HistorialReglaNegocio{},
		&models.Auditoria{},
		&models.Documento{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Wire services
	storage := services.InitializeStorage(cfg)
	notificador := services.NewEmailNotificador(cfg)
	calificaciones := services.NewCalificacionService(services.NewCalificacionStore(cfg), notificador)
	h := handlers.New(conn, cfg, calificaciones, storage)

	log.Printf("Calificacion store backend: %s", cfg.CalificacionStore)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
	}))

	// Public routes
	e.POST("/api/auth/login", h.Login)

	// Authenticated routes
	api := e.Group("/api")
	api.Use(middleware.RequireAuth(conn))
	{
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", h.Me)

		// Registros
		api.GET("/registros", h.ListarRegistros)
		api.GET("/registros/:id", h.ObtenerRegistro)
		api.GET("/registros/:id/documentos", h.ListarDocumentos)
		api.POST("/registros/:id/documentos", h.SubirDocumento)
		registrosAdmin := api.Group("/registros")
		registrosAdmin.Use(middleware.RequireRol(models.RolAnalista, models.RolTI))
		{
			registrosAdmin.POST("", h.CrearRegistro)
			registrosAdmin.PUT("/:id", h.ActualizarRegistro)
		}

		// Documentos
		api.GET("/documentos/:id/descargar", h.DescargarDocumento)

		// Calificaciones
		api.POST("/calificaciones", h.CrearCalificacion)
		api.GET("/calificaciones", h.ListarCalificaciones)
		api.GET("/calificaciones/:id", h.ObtenerCalificacion)
		api.PATCH("/calificaciones/:id", h.ActualizarCalificacion)
		api.POST("/calificaciones/:id/transicion", h.TransicionarCalificacion)
		api.POST("/calificaciones/:id/enviar-validacion", h.EnviarValidacion)
		api.POST("/calificaciones/carga-masiva", h.CargaMasiva)
		api.GET("/calificaciones/carga-masiva/plantilla", h.PlantillaCargaMasiva)

		resolucion := api.Group("/calificaciones")
		resolucion.Use(middleware.RequireRol(models.RolAuditor, models.RolTI))
		{
			resolucion.POST("/:id/resolver", h.ResolverCalificacion)
			resolucion.GET("/pendientes/lista", h.CalificacionesPendientes)
		}

		api.GET("/estadisticas/calificaciones", h.EstadisticasCalificaciones)

		// Reglas de negocio
		reglas := api.Group("/reglas-negocio")
		reglas.Use(middleware.RequireRol(models.RolAuditor, models.RolTI))
		{
			reglas.GET("", h.ListarReglas)
			reglas.GET("/:id", h.ObtenerRegla)
			reglas.GET("/:id/historial", h.HistorialRegla)
			reglas.GET("/:id/comparar", h.CompararVersiones)

			gestion := reglas.Group("")
			gestion.Use(middleware.RequireRol(models.RolTI))
			{
				gestion.POST("", h.CrearRegla)
				gestion.PUT("/:id", h.ActualizarRegla)
				gestion.DELETE("/:id", h.EliminarRegla)
				gestion.POST("/:id/rollback", h.RollbackRegla)
			}
		}

		// Auditoría
		auditoria := api.Group("/auditoria")
		auditoria.Use(middleware.RequireRol(models.RolAuditor, models.RolTI))
		{
			auditoria.GET("", h.ListarAuditoria)
			auditoria.GET("/objeto/:modelo/:id", h.HistorialObjeto)
		}

		// Administración
		admin := api.Group("/admin")
		{
			admin.GET("/estado-sistema", h.EstadoSistema)

			superadmin := admin.Group("")
			superadmin.Use(middleware.RequireSuperadmin())
			{
				superadmin.POST("/usuarios", h.CrearUsuario)
				superadmin.POST("/auditoria/purgar", h.PurgarAuditoria)
			}
		}
	}

	// Start server
	log.Printf("Starting server on port %s (environment: %s)", cfg.ServerPort, cfg.Environment)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
