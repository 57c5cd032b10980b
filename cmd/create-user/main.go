package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"tax_flow_app_go/config"
	"tax_flow_app_go/db"
	"tax_flow_app_go/models"
	"tax_flow_app_go/services"
)

// create-user registers a user from the command line, bypassing the API.
// Intended for bootstrapping the first TI or superadmin account.
func main() {
	nombre := flag.String("nombre", "", "Nombre completo del usuario")
	username := flag.String("username", "", "Username (obligatorio)")
	email := flag.String("email", "", "Email (obligatorio)")
	rol := flag.String("rol", models.RolCorredor, "Rol: CORREDOR, ANALISTA, AUDITOR o TI")
	superadmin := flag.Bool("superadmin", false, "Crear como administrador global")
	flag.Parse()

	if *username == "" || *email == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Load()
	conn, err := db.Initialize(cfg.DBPath, cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close(conn)

	if err := db.AutoMigrate(conn, &models.Usuario{}, &models.Sesion{}, &models.Auditoria{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	password = strings.TrimSpace(password)
	if len(password) < 8 {
		log.Fatal("Password must be at least 8 characters")
	}

	usuario := &models.Usuario{
		Nombre:       *nombre,
		Username:     *username,
		Email:        *email,
		Rol:          strings.ToUpper(*rol),
		EsSuperadmin: *superadmin,
	}

	if err := services.CrearUsuario(conn, usuario, password); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("Usuario %s creado (rol %s", usuario.Username, usuario.Rol)
	if usuario.EsSuperadmin {
		fmt.Print(", superadmin")
	}
	fmt.Println(")")
}
